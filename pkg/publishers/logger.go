package publishers

// Logger defines the logging surface publishers rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}

// deliveryLog records per-event delivery outcomes for one publisher.
type deliveryLog struct {
	log Logger
	id  string
	typ string
}

func newDeliveryLog(log Logger, id, typ string) deliveryLog {
	return deliveryLog{log: ensureLogger(log), id: id, typ: typ}
}

func (d deliveryLog) failed(evt Event, err error) {
	d.log.ErrorObj(d.typ+" publisher send failed", "publisher_error", map[string]any{
		"publisher_id": d.id,
		"event_id":     evt.ID,
		"event_type":   evt.Type,
		"error":        err.Error(),
	})
}

func (d deliveryLog) delivered(evt Event, messageID string) {
	d.log.DebugObj(d.typ+" publisher delivered event", "publisher_delivery", map[string]any{
		"publisher_id": d.id,
		"event_id":     evt.ID,
		"event_type":   evt.Type,
		"message_id":   messageID,
	})
}
