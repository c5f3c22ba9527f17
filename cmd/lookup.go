package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/internal/server"
)

var (
	lookupName    string
	lookupTitle   string
	lookupCompany string
	lookupFormat  string
	lookupLog     bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Run one lookup and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, details := server.ValidateSubject(server.SubjectRequest{
			Name:    lookupName,
			Title:   lookupTitle,
			Company: lookupCompany,
		})
		if len(details) > 0 {
			return eris.Errorf("invalid input: %v", details)
		}
		if lookupFormat != "json" && lookupFormat != "yaml" {
			return eris.Errorf("unsupported format %q", lookupFormat)
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx, cfg, "lookup")
		if err != nil {
			return err
		}
		defer env.Close()

		payload, err := env.Pipeline.Run(ctx, subject)
		if err != nil {
			return eris.Wrap(err, "lookup")
		}

		if err := renderPayload(cmd.OutOrStdout(), payload, lookupFormat); err != nil {
			return err
		}

		if lookupLog {
			entry := model.NewLogEntry(uuid.NewString(), time.Now(), subject, *payload)
			if err := env.Dispatcher.Append(entry); err != nil {
				return eris.Wrap(err, "append log entry")
			}
		}
		return nil
	},
}

func renderPayload(w io.Writer, payload *model.ResearchPayload, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(payload); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "json":
		b, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode json")
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	default:
		return eris.Errorf("unsupported format %q", format)
	}
}

func init() {
	lookupCmd.Flags().StringVar(&lookupName, "name", "", "person's full name")
	lookupCmd.Flags().StringVar(&lookupTitle, "title", "", "claimed job title")
	lookupCmd.Flags().StringVar(&lookupCompany, "company", "", "claimed employer")
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "json", "output format: json or yaml")
	lookupCmd.Flags().BoolVar(&lookupLog, "log", false, "append the result to the configured sinks")
	_ = lookupCmd.MarkFlagRequired("name")
	_ = lookupCmd.MarkFlagRequired("title")
	_ = lookupCmd.MarkFlagRequired("company")
	rootCmd.AddCommand(lookupCmd)
}
