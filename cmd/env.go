package main

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sinergia/leadquote/internal/crm"
	"github.com/sinergia/leadquote/internal/fetcher"
	"github.com/sinergia/leadquote/internal/leads"
	"github.com/sinergia/leadquote/internal/notify"
	"github.com/sinergia/leadquote/internal/refdata"
	"github.com/sinergia/leadquote/internal/resilience"
	"github.com/sinergia/leadquote/internal/simulator"
	"github.com/sinergia/leadquote/internal/store"
	"github.com/sinergia/leadquote/pkg/emailjs"
	"github.com/sinergia/leadquote/pkg/notion"
	sfpkg "github.com/sinergia/leadquote/pkg/salesforce"
)

// appEnv holds everything the serve command wires together.
type appEnv struct {
	Store     store.Store
	Simulator *simulator.Service
	Notifier  *notify.Notifier
	Forwarder *crm.Forwarder
	Leads     *leads.Service
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp builds the full environment. Reference data is not loaded here;
// callers decide whether a failed load is fatal.
func initApp(ctx context.Context) (*appEnv, error) {
	if err := cfg.Validate("serve"); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	sim, err := initSimulator()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	notifier, err := initNotifier()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	forwarder, err := initCRM()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	svc := leads.NewService(sim, st,
		leads.WithNotifier(notifier),
		leads.WithForwarder(forwarder),
	)

	return &appEnv{
		Store:     st,
		Simulator: sim,
		Notifier:  notifier,
		Forwarder: forwarder,
		Leads:     svc,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadquote.db"
		}
		st, err := store.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "memory":
		zap.L().Warn("using in-memory lead store, leads are lost on exit")
		return store.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the configured store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func initSource() (refdata.Source, error) {
	switch cfg.RefData.Source {
	case "dir":
		return refdata.NewDirSource(cfg.RefData.Dir), nil
	case "http":
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			Timeout:    cfg.RefData.LoadTimeout(),
			MaxRetries: cfg.Retry.MaxAttempts,
		})
		return refdata.NewHTTPSource(cfg.RefData.BaseURL, f)
	default:
		return nil, eris.Errorf("unsupported refdata source: %s", cfg.RefData.Source)
	}
}

func initSimulator() (*simulator.Service, error) {
	src, err := initSource()
	if err != nil {
		return nil, err
	}
	return simulator.New(src,
		simulator.WithLoadTimeout(cfg.RefData.LoadTimeout()),
		simulator.WithStrictBands(cfg.RefData.StrictBands),
	), nil
}

func initNotifier() (*notify.Notifier, error) {
	rc, bc := resilience.FromConfig(cfg.Retry)
	opts := []notify.Option{
		notify.WithRetry(rc),
		notify.WithBreakers(resilience.NewBreakers(bc)),
	}

	if !cfg.Email.Enabled {
		zap.L().Info("email notifications disabled")
		return notify.New(nil, cfg.Email, opts...)
	}

	clientOpts := []emailjs.Option{emailjs.WithPrivateKey(cfg.Email.PrivateKey)}
	if cfg.Email.BaseURL != "" {
		clientOpts = append(clientOpts, emailjs.WithBaseURL(cfg.Email.BaseURL))
	}
	client := emailjs.NewClient(cfg.Email.ServiceID, cfg.Email.PublicKey, clientOpts...)
	return notify.New(client, cfg.Email, opts...)
}

// initCRM returns the configured CRM forwarder. With no provider the
// forwarder skips every lead.
func initCRM() (*crm.Forwarder, error) {
	rc, bc := resilience.FromConfig(cfg.Retry)

	var sink crm.Sink
	switch cfg.CRM.Provider {
	case "":
		zap.L().Info("crm forwarding disabled")
	case "salesforce":
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		sink = crm.NewSalesforceSink(client)
	case "notion":
		sink = crm.NewNotionSink(notion.NewClient(cfg.CRM.Notion.Token), cfg.CRM.Notion.LeadDB)
	default:
		return nil, eris.Errorf("unsupported crm provider: %s", cfg.CRM.Provider)
	}

	if sink != nil {
		zap.L().Info("crm forwarding enabled", zap.String("provider", sink.Name()))
	}
	return crm.NewForwarder(sink, rc, bc), nil
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.CRM.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADQUOTE_CRM_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.CRM.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	return sfpkg.Connect(sfpkg.JWTCreds{
		LoginURL:      cfg.CRM.Salesforce.LoginURL,
		Username:      cfg.CRM.Salesforce.Username,
		ClientID:      cfg.CRM.Salesforce.ClientID,
		PrivateKeyPEM: string(pemData),
	}, sfpkg.WithRateLimit(5))
}

// loadSimulator builds a simulator for one-shot commands and loads it.
func loadSimulator(ctx context.Context) (*simulator.Service, error) {
	if err := cfg.Validate("simulate"); err != nil {
		return nil, err
	}
	sim, err := initSimulator()
	if err != nil {
		return nil, err
	}
	if err := sim.Init(ctx); err != nil {
		return nil, eris.Wrap(err, "load reference data")
	}
	return sim, nil
}

// initLeads opens the store for the leads commands. They never capture, so
// the service gets no quoter and no reference data is loaded.
func initLeads(ctx context.Context) (*leads.Service, store.Store, error) {
	if err := cfg.Validate("leads"); err != nil {
		return nil, nil, err
	}
	st, err := openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	return leads.NewService(nil, st), st, nil
}

// retryInit keeps retrying a failed reference data load until it succeeds
// or ctx is done.
func retryInit(ctx context.Context, sim *simulator.Service, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		if err := sim.Init(ctx); err != nil {
			zap.L().Warn("reference data load failed, will retry", zap.Error(err), zap.Duration("every", every))
			continue
		}
		zap.L().Info("reference data loaded after retry")
		return
	}
}
