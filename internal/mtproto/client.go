package mtproto

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/tg"
)

type gotdClient struct {
	api      *tg.Client
	resolver peer.Resolver
}

func (c *gotdClient) ResolveUsername(ctx context.Context, username string) (tg.InputPeerClass, error) {
	return c.resolver.ResolveDomain(ctx, username)
}

func (c *gotdClient) History(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	return c.api.MessagesGetHistory(ctx, req)
}

// dialTelegram runs a gotd client in the background until stop is called.
// It returns once the account is authorized.
func dialTelegram(ctx context.Context, opts Options, storage session.Storage) (client, func() error, error) {
	tc := telegram.NewClient(opts.APIID, opts.APIHash, telegram.Options{
		SessionStorage: storage,
		Logger:         opts.Logger.Named("gotd"),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- tc.Run(runCtx, func(ctx context.Context) error {
			if err := login(ctx, tc, opts); err != nil {
				return err
			}
			close(ready)
			<-ctx.Done()
			return nil
		})
	}()

	select {
	case <-ready:
	case err := <-done:
		cancel()
		if err == nil {
			err = errors.New("client stopped during login")
		}
		return nil, nil, err
	case <-ctx.Done():
		cancel()
		<-done
		return nil, nil, ctx.Err()
	}

	stop := func() error {
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	api := tc.API()
	return &gotdClient{api: api, resolver: peer.DefaultResolver(api)}, stop, nil
}

func login(ctx context.Context, tc *telegram.Client, opts Options) error {
	status, err := tc.Auth().Status(ctx)
	if err != nil {
		return fmt.Errorf("auth status: %w", err)
	}
	if status.Authorized {
		return nil
	}
	if opts.Phone == "" {
		return ErrLoginRequired
	}

	code := auth.CodeAuthenticatorFunc(func(context.Context, *tg.AuthSentCode) (string, error) {
		if opts.Code == "" {
			return "", ErrCodeRequired
		}
		return opts.Code, nil
	})
	flow := auth.NewFlow(auth.Constant(opts.Phone, opts.Password, code), auth.SendCodeOptions{})
	if err := tc.Auth().IfNecessary(ctx, flow); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return nil
}
