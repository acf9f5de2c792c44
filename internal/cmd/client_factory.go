package cmd

import (
	"fmt"

	"github.com/skullzarmy/Tusk/internal/api"
	"github.com/skullzarmy/Tusk/internal/config"
)

type clientFactory struct {
	overrides config.Overrides
	userAgent string
}

func newClientFactory() *clientFactory {
	return &clientFactory{
		overrides: config.Overrides{
			Profile:    flags.Profile,
			APIURL:     flags.APIURL,
			Timeout:    flags.Timeout,
			MaxRetries: flags.MaxRetries,
			RetryDelay: flags.RetryDelay,
		},
		userAgent: fmt.Sprintf("tusk/%s", version),
	}
}

func (f *clientFactory) client() (*api.Client, error) {
	cfg, err := config.Resolve(f.overrides)
	if err != nil {
		return nil, err
	}
	return f.newClient(cfg)
}

func (f *clientFactory) newClient(cfg api.Config) (*api.Client, error) {
	client, err := api.New(cfg)
	if err != nil {
		return nil, err
	}
	if f.userAgent != "" {
		client.UserAgent = f.userAgent
	}
	return client, nil
}

// getClient builds a client from the resolved credentials and global flags.
func getClient() (*api.Client, error) {
	return newClientFactory().client()
}
