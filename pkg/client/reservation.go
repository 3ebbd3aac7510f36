package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"helipad/pkg/model"
)

type ReservationClient struct {
	httpClient *HttpClient
}

func NewReservationClient(baseURL, token string) *ReservationClient {
	return &ReservationClient{
		httpClient: NewHttpClient(baseURL).WithBearerToken(token),
	}
}

type ListParams struct {
	From   *time.Time
	To     *time.Time
	Status []string
	Owner  string
	Limit  int
	Offset int64
}

func (p ListParams) query() string {
	q := url.Values{}
	if p.From != nil {
		q.Set("from", p.From.Format(time.RFC3339))
	}
	if p.To != nil {
		q.Set("to", p.To.Format(time.RFC3339))
	}
	if len(p.Status) > 0 {
		q.Set("status", strings.Join(p.Status, ","))
	}
	if p.Owner != "" {
		q.Set("owner", p.Owner)
	}
	if p.Limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", fmt.Sprintf("%d", p.Offset))
	}
	return q.Encode()
}

func (c *ReservationClient) Create(ctx context.Context, req model.BookingRequest) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/reservations", req)
}

func (c *ReservationClient) List(ctx context.Context, params ListParams) (*Response, error) {
	path := "/api/v1/reservations"
	if q := params.query(); q != "" {
		path += "?" + q
	}
	return c.httpClient.GET(ctx, path)
}

func (c *ReservationClient) GetByID(ctx context.Context, id string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/reservations/id/"+url.PathEscape(id))
}

func (c *ReservationClient) Update(ctx context.Context, id string, body any) (*Response, error) {
	return c.httpClient.PATCH(ctx, "/api/v1/reservations/id/"+url.PathEscape(id), body)
}

func (c *ReservationClient) Approve(ctx context.Context, id string) (*Response, error) {
	return c.transition(ctx, id, "approve")
}

func (c *ReservationClient) Reject(ctx context.Context, id string) (*Response, error) {
	return c.transition(ctx, id, "reject")
}

func (c *ReservationClient) Cancel(ctx context.Context, id string) (*Response, error) {
	return c.transition(ctx, id, "cancel")
}

func (c *ReservationClient) transition(ctx context.Context, id, action string) (*Response, error) {
	return c.httpClient.POST(ctx, "/api/v1/reservations/id/"+url.PathEscape(id)+"/"+action, nil)
}

func (c *ReservationClient) Availability(ctx context.Context, date string) (*Response, error) {
	return c.httpClient.GET(ctx, "/api/v1/availability?date="+url.QueryEscape(date))
}
