package config

import (
	"fmt"

	postgrest "github.com/supabase-community/postgrest-go"
	"github.com/sirupsen/logrus"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/store"
)

// NewPostgRESTClient connects to the Supabase REST endpoint with the service key.
func NewPostgRESTClient(s Supabase) (*postgrest.Client, error) {
	if s.URL == "" || s.ServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}

	client := postgrest.NewClient(s.URL+"/rest/v1", s.Schema, map[string]string{
		"apikey":        s.ServiceKey,
		"Authorization": fmt.Sprintf("Bearer %s", s.ServiceKey),
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("failed to initialize Supabase client: %w", client.ClientError)
	}
	return client, nil
}

// OpenStore builds the store selected by cfg.Store.Driver.
func OpenStore(cfg *Config, logger *logrus.Logger) (store.Store, error) {
	entry := logger.WithField("driver", cfg.Store.Driver)
	switch cfg.Store.Driver {
	case DriverPostgREST:
		client, err := NewPostgRESTClient(cfg.Supabase)
		if err != nil {
			return nil, err
		}
		entry.WithField("url", cfg.Supabase.URL).Info("PostgREST store initialized")
		return store.NewPostgREST(client)
	case DriverSQLite:
		s, err := store.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		entry.WithField("path", s.Path()).Info("SQLite store opened")
		return s, nil
	case DriverMemory:
		entry.Warn("using in-memory store; timelines are lost on restart")
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
