package main

import (
	"context"

	"github.com/sells-group/pjm-brief/internal/notify"
	"github.com/sells-group/pjm-brief/internal/store"
	anthropicpkg "github.com/sells-group/pjm-brief/pkg/anthropic"
)

func openStore(ctx context.Context) (store.Reader, error) {
	return store.Open(ctx, store.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN(),
		Path:   cfg.Database.Path,
		Schema: cfg.Database.Schema,
		Table:  cfg.Database.Table,
	})
}

func newAnthropicClient() anthropicpkg.Client {
	var opts []anthropicpkg.ClientOption
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	return anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)
}

func mailSettings() notify.Settings {
	return notify.Settings{
		From:     cfg.Mail.From,
		Password: cfg.Mail.Password,
		To:       cfg.Mail.To,
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
	}
}
