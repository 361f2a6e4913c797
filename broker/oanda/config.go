package oanda

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	Environment string
	BaseURL     string // overrides Environment when set
	Token       string
	AccountID   string
	Timeout     time.Duration
}

// FromEnv fills empty credentials from OANDA_TOKEN and OANDA_ACCOUNT_ID.
func (c Config) FromEnv() Config {
	if c.Token == "" {
		c.Token = os.Getenv("OANDA_TOKEN")
	}
	if c.AccountID == "" {
		c.AccountID = os.Getenv("OANDA_ACCOUNT_ID")
	}
	return c
}

func (c Config) Validate() error {
	if c.Token == "" {
		return errors.New("oanda: missing token")
	}
	if c.AccountID == "" {
		return errors.New("oanda: missing account id")
	}
	if c.BaseURL == "" && c.Environment == "" {
		return errors.New("oanda: missing environment")
	}
	return nil
}
