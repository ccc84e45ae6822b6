package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/publicsuffix"
)

// probeClient talks to a running Folio API. Cookies persist across calls so a
// login is carried into the follow-up /me request.
type probeClient struct {
	http *http.Client
	base string
}

func newProbeClient(baseURL, apiPrefix string, timeout time.Duration) (*probeClient, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &probeClient{
		http: &http.Client{Jar: jar, Timeout: timeout},
		base: strings.TrimRight(baseURL, "/") + apiPrefix,
	}, nil
}

func (p *probeClient) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.base+path, rd)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, nil
}

// probeResult is what one probe observed.
type probeResult struct {
	Initialized *bool
	LoggedInAs  string
}

type probeInput struct {
	UserSlug string
	Email    string
	Password string
}

func (p *probeClient) probe(ctx context.Context, in probeInput) (probeResult, error) {
	var res probeResult

	var init struct {
		Initialized *bool  `json:"initialized"`
		Message     string `json:"message"`
	}
	status, err := p.do(ctx, http.MethodGet, "/"+in.UserSlug+"/init", nil, &init)
	if err != nil {
		return res, fmt.Errorf("init probe: %w", err)
	}
	if status != http.StatusOK {
		return res, fmt.Errorf("init probe: status %d: %s", status, init.Message)
	}
	res.Initialized = init.Initialized
	if in.Email == "" {
		return res, nil
	}

	var login struct {
		Message string `json:"message"`
	}
	status, err = p.do(ctx, http.MethodPost, "/"+in.UserSlug+"/login",
		map[string]string{"email": in.Email, "password": in.Password}, &login)
	if err != nil {
		return res, fmt.Errorf("login: %w", err)
	}
	if status != http.StatusOK {
		return res, fmt.Errorf("login: status %d: %s", status, login.Message)
	}

	var me struct {
		User map[string]any `json:"user"`
	}
	if _, err = p.do(ctx, http.MethodGet, "/"+in.UserSlug+"/me", nil, &me); err != nil {
		return res, fmt.Errorf("me: %w", err)
	}
	if me.User == nil {
		return res, errors.New("me: session cookie was not accepted")
	}
	res.LoggedInAs, _ = me.User["email"].(string)
	return res, nil
}

func newProbeCmd(c *cli) *cobra.Command {
	var (
		baseURL string
		email   string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check a running server: initialization status and, optionally, a local login",
		Long: "Queries the init endpoint of the admin user collection. With --email the probe " +
			"also signs in (password from " + passwordEnv + ") and confirms the session with /me.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if baseURL == "" {
				baseURL = c.cfg.HTTP.BaseURL
			}
			if timeout <= 0 {
				timeout = c.cfg.Admin.InitProbeTimeout
			}
			client, err := newProbeClient(baseURL, c.cfg.Admin.APIPrefix, timeout)
			if err != nil {
				return err
			}
			res, err := client.probe(cmd.Context(), probeInput{
				UserSlug: c.cfg.Admin.UserSlug,
				Email:    email,
				Password: os.Getenv(passwordEnv),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case res.Initialized == nil:
				err = writef(out, "initialized: unknown\n")
			case *res.Initialized:
				err = writef(out, "initialized: yes\n")
			default:
				err = writef(out, "initialized: no (visit %s%s/create-first-user)\n",
					strings.TrimRight(baseURL, "/"), c.cfg.Admin.RoutePrefix)
			}
			if err != nil || res.LoggedInAs == "" {
				return err
			}
			return writef(out, "login: ok (%s)\n", res.LoggedInAs)
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "server base URL (defaults to APP_BASE_URL)")
	cmd.Flags().StringVar(&email, "email", "", "also sign in as this user")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout (defaults to INIT_PROBE_TIMEOUT)")
	return cmd
}
