package main

import (
	"context"
	"os"
	"time"

	gosf "github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/card-ingest/internal/config"
	"github.com/sells-group/card-ingest/internal/crm"
	"github.com/sells-group/card-ingest/internal/ocr"
	"github.com/sells-group/card-ingest/internal/pipeline"
	"github.com/sells-group/card-ingest/internal/store"
	sfpkg "github.com/sells-group/card-ingest/pkg/salesforce"
)

// ingestEnv holds the store, pipeline and the resources that must be
// released when a command exits.
type ingestEnv struct {
	Store    store.LeadStore
	Pipeline *pipeline.Pipeline
	closers  []func() error
}

// Close releases resources in reverse order of acquisition.
func (e *ingestEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close resource", zap.Error(err))
		}
	}
}

// initIngest validates cfg for mode, opens and migrates the store, and
// builds the pipeline. Callers should defer env.Close().
func initIngest(ctx context.Context, c *config.Config, mode string) (*ingestEnv, error) {
	c.ResolveDefaults()
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	env := &ingestEnv{}
	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	env.Store = st
	env.closers = append(env.closers, st.Close)

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	ext, closeOCR, err := ocr.NewExtractor(ctx, c.OCR)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.closers = append(env.closers, closeOCR)

	fwd, closeFwd, err := initForwarder(c)
	if err != nil {
		env.Close()
		return nil, err
	}
	if closeFwd != nil {
		env.closers = append(env.closers, closeFwd)
	}

	env.Pipeline = pipeline.New(ext, st, fwd, ocr.Label(c.OCR.Provider))
	zap.L().Info("ingest pipeline ready",
		zap.String("store", c.Store.Driver),
		zap.String("ocr", c.OCR.Provider),
		zap.String("sync", c.Sync.Target),
	)
	return env, nil
}

func initStore(ctx context.Context, sc config.StoreConfig) (store.LeadStore, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.SQLitePath
		if dsn == "" {
			dsn = "card-ingest.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// initForwarder builds the configured CRM forwarder. A nil forwarder means
// sync is disabled. The returned close func may be nil.
func initForwarder(c *config.Config) (crm.Forwarder, func() error, error) {
	switch c.Sync.Target {
	case "http":
		return crm.NewHTTPForwarder(c.Sync.Endpoint,
			crm.WithTimeout(time.Duration(c.Sync.TimeoutSecs)*time.Second),
		), nil, nil
	case "salesforce":
		sfClient, err := initSalesforce(c.Salesforce)
		if err != nil {
			return nil, nil, err
		}
		return crm.NewSalesforceForwarder(sfClient), nil, nil
	case "amqp":
		ch, err := crm.DialAMQP(c.Sync.AMQPURL, c.Sync.AMQPExchange)
		if err != nil {
			return nil, nil, err
		}
		return crm.NewAMQPForwarder(ch.Ch, c.Sync.AMQPExchange, c.Sync.AMQPRoutingKey), ch.Close, nil
	case "none":
		zap.L().Warn("sync target is none, leads will only be stored")
		return nil, nil, nil
	default:
		return nil, nil, eris.Errorf("unsupported sync target: %s", c.Sync.Target)
	}
}

func initSalesforce(sc config.SalesforceConfig) (sfpkg.Client, error) {
	if sc.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (CARDINGEST_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(sc.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := gosf.Init(gosf.Creds{
		Domain:         sc.LoginURL,
		Username:       sc.Username,
		ConsumerKey:    sc.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf, sfpkg.WithRateLimit(sc.RateLimit)), nil
}
