package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"logtail/internal/api"
	"logtail/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) apiAddressFlag() string {
	if c.apiFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.apiFlag)
}

func (c *commandContext) apiAddress() string {
	if flag := c.apiAddressFlag(); flag != "" {
		return flag
	}
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return config.Default().Paths.APIBind
	}
	return cfg.Paths.APIBind
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	address := c.apiAddress()
	client, err := api.NewClient(address)
	if err != nil {
		return wrapAPIError(err, address)
	}
	return wrapAPIError(fn(client), address)
}

func wrapAPIError(err error, address string) error {
	switch {
	case err == nil:
		return nil
	case api.IsAPIUnavailable(err):
		return fmt.Errorf("connect to daemon at %s: %w; start it with `logtail daemon`", address, err)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
