// Package sink appends lookup log entries to durable destinations.
package sink

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/opportunity-research/internal/config"
	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/pkg/notion"
	"github.com/sells-group/opportunity-research/pkg/salesforce"
)

// Sink is a destination for lookup log entries.
type Sink interface {
	Name() string
	Append(ctx context.Context, entry model.LogEntry) error
	Close() error
}

// Migrator is implemented by sinks that own a schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Name() string                                 { return "nop" }
func (Nop) Append(context.Context, model.LogEntry) error { return nil }
func (Nop) Close() error                                 { return nil }

// Timeout returns the per-entry append deadline for cfg.
func Timeout(cfg config.SinkConfig) time.Duration {
	if cfg.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(cfg.TimeoutSecs) * time.Second
}

// New opens every driver listed in cfg.Drivers. An empty list yields Nop.
// On failure any sinks already opened are closed.
func New(ctx context.Context, cfg config.SinkConfig) (Sink, error) {
	if len(cfg.Drivers) == 0 {
		return Nop{}, nil
	}

	sinks := make([]Sink, 0, len(cfg.Drivers))
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	for _, driver := range cfg.Drivers {
		s, err := open(ctx, driver, cfg)
		if err != nil {
			closeAll()
			return nil, eris.Wrapf(err, "sink: open %s", driver)
		}
		sinks = append(sinks, s)
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return NewMulti(sinks...), nil
}

func open(ctx context.Context, driver string, cfg config.SinkConfig) (Sink, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		return NewPostgres(ctx, cfg.PostgresURL)
	case "xlsx":
		return NewWorkbook(cfg.XLSXPath), nil
	case "notion":
		return NewNotion(notion.NewClient(cfg.Notion.Token), cfg.Notion.DatabaseID), nil
	case "salesforce":
		sf := cfg.Salesforce
		client, err := salesforce.Connect(salesforce.JWTConfig{
			LoginURL: sf.LoginURL,
			Username: sf.Username,
			ClientID: sf.ClientID,
			KeyPath:  sf.KeyPath,
		}, salesforce.WithRateLimit(5))
		if err != nil {
			return nil, err
		}
		return NewSalesforce(client, sf.SObject), nil
	default:
		return nil, eris.Errorf("unsupported driver %q", driver)
	}
}

// Migrate runs Migrate on s, or on each member when s is a Multi.
func Migrate(ctx context.Context, s Sink) error {
	if m, ok := s.(*Multi); ok {
		for _, member := range m.sinks {
			if err := Migrate(ctx, member); err != nil {
				return err
			}
		}
		return nil
	}
	if m, ok := s.(Migrator); ok {
		return m.Migrate(ctx)
	}
	return nil
}
