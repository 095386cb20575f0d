package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/samvad-hq/userdesk/internal/domain"
	"github.com/spf13/cobra"
)

type printer struct {
	out    io.Writer
	asJSON bool
}

func (c *cli) printer(cmd *cobra.Command) printer {
	return printer{out: cmd.OutOrStdout(), asJSON: c.jsonOutput}
}

func (p printer) encode(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) message(msg string) error {
	if p.asJSON {
		return p.encode(map[string]string{"message": msg})
	}
	_, err := fmt.Fprintln(p.out, msg)
	return err
}

func (p printer) user(u domain.User) error {
	u.Token = ""
	if p.asJSON {
		return p.encode(u)
	}
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "id:\t%s\n", u.ID)
	fmt.Fprintf(tw, "username:\t%s\n", u.Username)
	fmt.Fprintf(tw, "name:\t%s\n", u.Name)
	fmt.Fprintf(tw, "status:\t%s\n", u.Status)
	fmt.Fprintf(tw, "created:\t%s\n", createdAt(u))
	fmt.Fprintf(tw, "birthday:\t%s\n", birthdayOf(u))
	return tw.Flush()
}

func (p printer) users(list []domain.User) error {
	if p.asJSON {
		if list == nil {
			list = []domain.User{}
		}
		return p.encode(list)
	}
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tNAME\tSTATUS\tCREATED")
	for _, u := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Username, u.Name, u.Status, createdAt(u))
	}
	return tw.Flush()
}

func createdAt(u domain.User) string {
	if u.CreationDate == nil || u.CreationDate.IsZero() {
		return "-"
	}
	return u.CreationDate.Format("2006-01-02 15:04")
}

func birthdayOf(u domain.User) string {
	if u.Birthday == nil || u.Birthday.IsZero() {
		return "-"
	}
	return u.Birthday.String()
}
