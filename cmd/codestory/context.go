package main

import (
	"errors"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"codestory/internal/client"
	"codestory/internal/config"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// apiClient resolves the daemon address from the --addr flag or the
// configured API bind and returns a client for it.
func (c *commandContext) apiClient() (*client.Client, error) {
	var addr string
	if c.addrFlag != nil {
		addr = strings.TrimSpace(*c.addrFlag)
	}

	token := ""
	cfg, err := c.ensureConfig()
	if err != nil && addr == "" {
		return nil, err
	}
	if cfg != nil {
		token = cfg.Paths.APIToken
		if addr == "" {
			addr = strings.TrimSpace(cfg.Paths.APIBind)
		}
	}
	if addr == "" {
		return nil, errors.New("daemon API address not configured; set paths.api_bind or pass --addr")
	}
	return client.New(addr, token), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
