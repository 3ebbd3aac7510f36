package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"helipad/pkg/client"
	"helipad/pkg/middleware"
	"helipad/pkg/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

const requestTimeout = 15 * time.Second

func (o *globalOptions) client() (*client.ReservationClient, error) {
	token := o.token
	if token == "" && o.secret != "" {
		signed, err := o.sign(time.Hour)
		if err != nil {
			return nil, err
		}
		token = signed
	}
	return client.NewReservationClient(strings.TrimRight(o.baseURL, "/"), token), nil
}

func (o *globalOptions) sign(ttl time.Duration) (string, error) {
	if o.secret == "" {
		return "", fmt.Errorf("--jwt-secret is required to sign a token")
	}
	if o.subject == "" {
		return "", fmt.Errorf("--as is required to sign a token")
	}
	now := time.Now()
	return middleware.IssueToken(o.secret, o.subject, o.role, jwt.RegisteredClaims{
		Issuer:    "helipadctl",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
}

func newTokenCmd(opts *globalOptions) *cobra.Command {
	var ttl time.Duration

	c := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for --as and --role",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.sign(ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	c.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return c
}

func newRequestCmd(opts *globalOptions) *cobra.Command {
	var (
		start    string
		end      string
		metadata []string
	)

	c := &cobra.Command{
		Use:   "request",
		Short: "Request a reservation",
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("invalid --start (want RFC3339): %w", err)
			}
			endTime, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("invalid --end (want RFC3339): %w", err)
			}
			req := model.BookingRequest{StartTime: startTime, EndTime: endTime}
			if len(metadata) > 0 {
				req.Metadata = make(map[string]any, len(metadata))
				for _, kv := range metadata {
					key, value, ok := strings.Cut(kv, "=")
					if !ok || key == "" {
						return fmt.Errorf("invalid --meta %q (want key=value)", kv)
					}
					req.Metadata[key] = value
				}
			}

			return run(cmd, opts, func(ctx context.Context, c *client.ReservationClient) (*client.Response, error) {
				return c.Create(ctx, req)
			})
		},
	}
	c.Flags().StringVar(&start, "start", "", "start time, RFC3339")
	c.Flags().StringVar(&end, "end", "", "end time, RFC3339")
	c.Flags().StringArrayVar(&metadata, "meta", nil, "metadata entry key=value (repeatable)")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
	return c
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var (
		from   string
		to     string
		params client.ListParams
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List reservations visible to the caller",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if params.From, err = parseOptionalTime("--from", from); err != nil {
				return err
			}
			if params.To, err = parseOptionalTime("--to", to); err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, c *client.ReservationClient) (*client.Response, error) {
				return c.List(ctx, params)
			})
		},
	}
	c.Flags().StringVar(&from, "from", "", "window start, RFC3339")
	c.Flags().StringVar(&to, "to", "", "window end, RFC3339")
	c.Flags().StringSliceVar(&params.Status, "status", nil, "status filter (pending, confirmed, cancelled)")
	c.Flags().StringVar(&params.Owner, "owner", "", "owner id filter (privileged callers only)")
	c.Flags().IntVar(&params.Limit, "limit", 0, "page size")
	c.Flags().Int64Var(&params.Offset, "offset", 0, "page offset")
	return c
}

func newGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one reservation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, c *client.ReservationClient) (*client.Response, error) {
				return c.GetByID(ctx, args[0])
			})
		},
	}
}

func newTransitionCmd(opts *globalOptions, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, c *client.ReservationClient) (*client.Response, error) {
				switch action {
				case "approve":
					return c.Approve(ctx, args[0])
				case "reject":
					return c.Reject(ctx, args[0])
				default:
					return c.Cancel(ctx, args[0])
				}
			})
		},
	}
}

func newAvailabilityCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "availability <YYYY-MM-DD>",
		Short: "Show free slots for a day in the helipad's timezone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.Parse(time.DateOnly, args[0]); err != nil {
				return fmt.Errorf("invalid date %q (want YYYY-MM-DD)", args[0])
			}
			return run(cmd, opts, func(ctx context.Context, c *client.ReservationClient) (*client.Response, error) {
				return c.Availability(ctx, args[0])
			})
		},
	}
}

type call func(ctx context.Context, c *client.ReservationClient) (*client.Response, error)

func run(cmd *cobra.Command, opts *globalOptions, fn call) error {
	c, err := opts.client()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
	defer cancel()

	resp, err := fn(ctx, c)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: %s", resp.Status, client.GetErrorMessage(resp))
	}
	return printJSON(cmd.OutOrStdout(), resp.Body)
}

func printJSON(w io.Writer, body []byte) error {
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "  "); err != nil {
		_, err = w.Write(body)
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}

func parseOptionalTime(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s (want RFC3339): %w", flag, err)
	}
	return &t, nil
}
