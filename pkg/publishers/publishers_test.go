package publishers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRegistryEnabledFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "publishers.yaml")
	raw := `
publishers:
  - id: http1
    type: http
    enabled: false
    http:
      url: https://example.com
  - id: audit-queue
    type: SQS
    sqs:
      uri: " https://sqs.eu-central-1.amazonaws.com/123/audit "
      region: eu-central-1
      endpoint: http://localhost:4566
      access_key_id: test
      secret_access_key: test
  - id: audit-topic
    type: pubsub
    pubsub:
      project_id: demo
      topic: activity
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	enabled := reg.Enabled()
	if len(enabled) != 2 || enabled[0].ID != "audit-queue" || enabled[1].ID != "audit-topic" {
		t.Fatalf("unexpected enabled publishers %#v", enabled)
	}

	sqsCfg, ok := reg.ByID("audit-queue")
	if !ok {
		t.Fatalf("ByID audit-queue missing")
	}
	if sqsCfg.Type != TypeSQS {
		t.Fatalf("type not normalized: %q", sqsCfg.Type)
	}
	if sqsCfg.SQS.QueueURL != "https://sqs.eu-central-1.amazonaws.com/123/audit" {
		t.Fatalf("queue url not trimmed: %q", sqsCfg.SQS.QueueURL)
	}
	if sqsCfg.SQS.Endpoint != "http://localhost:4566" || sqsCfg.SQS.AccessKeyID != "test" {
		t.Fatalf("aws access not decoded: %#v", sqsCfg.SQS.AWSAccess)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.json")
	raw := `{"publishers":[{"id":"t","type":"sns","sns":{"topic_arn":"arn:aws:sns:eu-central-1:1:t","region":"eu-central-1"}}]}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	reg, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if all := reg.All(); len(all) != 1 || all[0].SNS == nil {
		t.Fatalf("unexpected publishers %#v", all)
	}
}

func TestValidatePublisherConfig(t *testing.T) {
	cases := map[string]PublisherConfig{
		"missing http":   {ID: "h1", Type: TypeHTTP},
		"missing sns":    {ID: "s1", Type: TypeSNS, SNS: &SNSPublisherConfig{Region: "eu-central-1"}},
		"missing topic":  {ID: "p1", Type: TypePubSub, PubSub: &PubSubPublisherConfig{ProjectID: "demo"}},
		"half keys":      {ID: "q1", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u", Region: "r", AWSAccess: AWSAccess{AccessKeyID: "k"}}},
		"missing region": {ID: "q2", Type: TypeSQS, SQS: &SQSPublisherConfig{QueueURL: "u"}},
		"unknown type":   {ID: "k1", Type: "kafka"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			if err := cfg.validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadRegistryRejectsDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "publishers.yaml")
	raw := `
publishers:
  - id: a
    type: http
    http: {url: https://example.com}
  - id: a
    type: http
    http: {url: https://example.com/2}
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}
