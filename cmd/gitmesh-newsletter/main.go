package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gitmesh/newsletter"
	"github.com/gitmesh/newsletter/bolt"
	"github.com/gitmesh/newsletter/http"
	"github.com/gitmesh/newsletter/mail"
	"github.com/gitmesh/newsletter/pkg/idgen"
	"github.com/gitmesh/newsletter/sendgrid"
	"github.com/gitmesh/newsletter/ses"
	"github.com/gitmesh/newsletter/smtp"
	"github.com/gitmesh/newsletter/sqlite"
	"github.com/gitmesh/newsletter/subscription"
)

func main() {
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}

	viper.SetDefault("machineid", 1)
	viper.SetDefault("http.addr", ":8080")
	viper.SetDefault("db.type", "bolt")
	viper.SetDefault("db.path", "newsletter.db")
	viper.SetDefault("email.provider", "smtp")
	viper.SetDefault("newsletter.digest.posts", 5)

	var config *newsletter.Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatal(err)
	}

	if err := idgen.Init(config.MachineID); err != nil {
		log.Fatalf("idgen.Init: %v", err)
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn: config.Sentry.DSN,
	}); err != nil {
		log.Fatalf("sentry.Init: %v", err)
	}
	defer sentry.Flush(2 * time.Second)

	a, err := newApp(config)
	if err != nil {
		log.Fatalf("%+v\n", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		cancel()
	}()

	if err := a.Run(ctx); err != nil {
		_ = a.Close()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	<-ctx.Done()

	if err := a.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	config     *newsletter.Config
	logger     zerolog.Logger
	db         newsletter.Database
	httpServer *http.Server
	cron       *cron.Cron
}

func newApp(config *newsletter.Config) (*app, error) {
	httpServer, err := http.NewServer(config.Admin.SessionKey, config.Admin.Password, config.Admin.AllowList)
	if err != nil {
		return nil, err
	}

	return &app{
		config:     config,
		logger:     zerolog.New(os.Stdout).With().Timestamp().Logger(),
		httpServer: httpServer,
	}, nil
}

func (a *app) Run(ctx context.Context) error {
	subscribers, deliveryLogs, posts, err := a.openStores()
	if err != nil {
		return err
	}

	a.httpServer.Addr = a.config.HTTP.Addr
	if err := a.httpServer.Open(); err != nil {
		return err
	}

	transport, err := a.openTransport(ctx)
	if err != nil {
		return err
	}

	baseURL := a.config.HTTP.BaseURL
	if baseURL == "" {
		baseURL = a.httpServer.URL()
	}

	templates := mail.NewTemplates(
		a.config.Newsletter.Product.Name,
		a.config.Newsletter.Product.Link,
		baseURL,
	)
	sender := mail.NewRetryingSender(transport, mail.DefaultRetryConfig(), a.logger)
	runner := mail.NewBulkCampaignRunner(sender, mail.DefaultConcurrency, mail.DefaultInterBatchDelay, a.logger)
	mailService := mail.NewService(subscribers, deliveryLogs, posts, templates, sender, runner, a.logger)

	a.httpServer.SubscriberStore = subscribers
	a.httpServer.DeliveryLogStore = deliveryLogs
	a.httpServer.NewsletterService = mailService
	a.httpServer.SubscriptionService = subscription.NewService(subscribers, mailService, a.logger)

	if spec := a.config.Newsletter.Digest.Cron; spec != "" {
		a.cron = cron.New()
		if _, err := a.cron.AddFunc(spec, func() {
			result, err := mailService.SendDigest(a.config.Newsletter.Digest.Posts)
			if err != nil {
				a.logger.Error().Err(err).Msg("digest send failed")
				sentry.CaptureException(err)
				return
			}
			a.logger.Info().
				Int("sent", result.TotalSent).
				Int("failed", result.TotalFailed).
				Msg("digest sent")
		}); err != nil {
			return err
		}
		a.cron.Start()
	}

	return nil
}

func (a *app) openStores() (newsletter.SubscriberStore, newsletter.DeliveryLogStore, newsletter.PostService, error) {
	switch a.config.DB.Type {
	case "sqlite":
		db := sqlite.NewDB(a.config.DB.Path)
		if err := db.Open(); err != nil {
			return nil, nil, nil, err
		}
		a.db = db
		return sqlite.NewSubscriberStore(db), sqlite.NewDeliveryLogStore(db), sqlite.NewPostStore(db), nil
	default:
		db := bolt.NewDB(a.config.DB.Path)
		if err := db.Open(); err != nil {
			return nil, nil, nil, err
		}
		a.db = db
		return bolt.NewSubscriberStore(db), bolt.NewDeliveryLogStore(db), bolt.NewPostStore(db), nil
	}
}

func (a *app) openTransport(ctx context.Context) (newsletter.EmailTransport, error) {
	email := a.config.Email
	switch email.Provider {
	case "sendgrid":
		return sendgrid.NewTransport(email.SendGrid.APIKey, email.From, email.FromName), nil
	case "ses":
		return ses.NewTransport(ctx, email.SES.Region, email.SES.AccessKey, email.SES.SecretKey, email.From, email.FromName)
	default:
		return smtp.NewTransport(email.SMTP.Host, email.SMTP.Port, email.SMTP.Username, email.SMTP.Password, email.From, email.FromName), nil
	}
}

func (a *app) Close() error {
	if a.cron != nil {
		a.cron.Stop()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Close(); err != nil {
			return err
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			return err
		}
	}

	return nil
}
