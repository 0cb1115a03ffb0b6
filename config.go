package newsletter

// Config represents the main config
type Config struct {
	// MachineID distinguishes instances when minting delivery log IDs
	MachineID int64

	DB struct {
		Type string // "bolt" or "sqlite"
		Path string
	}

	HTTP struct {
		Addr    string
		BaseURL string
	}

	Email struct {
		Provider string // "sendgrid", "ses" or "smtp"
		From     string
		FromName string

		SendGrid struct {
			APIKey string
		}

		SES struct {
			Region    string
			AccessKey string
			SecretKey string
		}

		SMTP struct {
			Host     string
			Port     int
			Username string
			Password string
		}
	}

	Newsletter struct {
		Product struct {
			Name string
			Link string
		}
		Digest struct {
			Cron  string // empty disables the scheduled digest
			Posts int
		}
	}

	Admin struct {
		SessionKey string
		Password   string
		AllowList  []string
	}

	Sentry struct {
		DSN string
	}
}
