package client

import (
	"context"
	"fmt"
	"net/http"
)

// Public booking flow

// AvailableSlots is cached per date.
func (c *Client) AvailableSlots(ctx context.Context, date string) ([]Slot, error) {
	return Fetch(ctx, c.cache, slotsKey(date), func(ctx context.Context) ([]Slot, error) {
		var res slotsResponse
		if err := c.do(ctx, http.MethodGet, "/available-slots", struct {
			Date string `url:"date"`
		}{date}, nil, &res, nil); err != nil {
			return nil, err
		}
		return res.Slots, nil
	})
}

func (c *Client) Services(ctx context.Context) (*Catalogue, error) {
	return Fetch(ctx, c.cache, keyServices, func(ctx context.Context) (*Catalogue, error) {
		var cat Catalogue
		if err := c.do(ctx, http.MethodGet, "/services", nil, nil, &cat, nil); err != nil {
			return nil, err
		}
		return &cat, nil
	})
}

func (c *Client) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	var q Quote
	if err := c.do(ctx, http.MethodPost, "/bookings/quote", nil, req, &q, nil); err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateBooking submits a booking. A non-empty idempotencyKey makes retries
// of the same submission return the first booking. Success invalidates the
// date's availability.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest, idempotencyKey string) (*Booking, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	var b Booking
	if err := c.do(ctx, http.MethodPost, "/bookings", nil, req, &b, headers); err != nil {
		return nil, err
	}
	c.cache.Invalidate(slotsKey(req.Date), keyCustomerList, keyCustomerStats)
	return &b, nil
}

func (c *Client) ValidatePromo(ctx context.Context, code string, subtotalCents int64) (*PromoValidation, error) {
	body := struct {
		Code          string `json:"code"`
		SubtotalCents int64  `json:"subtotalCents"`
	}{code, subtotalCents}
	var v PromoValidation
	if err := c.do(ctx, http.MethodPost, "/promo-codes/validate", nil, body, &v, nil); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) ValidateReferral(ctx context.Context, code, email string) (*ReferralValidation, error) {
	body := struct {
		Code  string `json:"code"`
		Email string `json:"email"`
	}{code, email}
	var v ReferralValidation
	if err := c.do(ctx, http.MethodPost, "/referrals/validate", nil, body, &v, nil); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) CheckZip(ctx context.Context, zip string) (*ZipCheck, error) {
	var z ZipCheck
	if err := c.do(ctx, http.MethodGet, "/service-areas/check/"+pathEscape(zip), nil, nil, &z, nil); err != nil {
		return nil, err
	}
	return &z, nil
}

func (c *Client) SetupIntent(ctx context.Context, email, name string) (*SetupIntent, error) {
	body := struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}{email, name}
	var si SetupIntent
	if err := c.do(ctx, http.MethodPost, "/payments/setup-intent", nil, body, &si, nil); err != nil {
		return nil, err
	}
	return &si, nil
}

// Management link

func (c *Client) ManagedBooking(ctx context.Context, token string) (*BookingView, error) {
	return Fetch(ctx, c.cache, manageKey(token), func(ctx context.Context) (*BookingView, error) {
		var v BookingView
		if err := c.do(ctx, http.MethodGet, "/bookings/manage/"+pathEscape(token), nil, nil, &v, nil); err != nil {
			return nil, err
		}
		return &v, nil
	})
}

// CancelBooking frees the booking's seat, so the date's availability is
// invalidated along with the management view.
func (c *Client) CancelBooking(ctx context.Context, token string, req CancelRequest) (*Booking, error) {
	var b Booking
	if err := c.do(ctx, http.MethodPost, "/bookings/manage/"+pathEscape(token)+"/cancel", nil, req, &b, nil); err != nil {
		return nil, err
	}
	c.cache.Invalidate(manageKey(token), slotsKey(b.Date), keyCustomerList)
	return &b, nil
}

func (c *Client) RequestReschedule(ctx context.Context, token string, in RescheduleInput) (*RescheduleRequest, error) {
	var rr RescheduleRequest
	if err := c.do(ctx, http.MethodPost, "/bookings/manage/"+pathEscape(token)+"/reschedule", nil, in, &rr, nil); err != nil {
		return nil, err
	}
	c.cache.Invalidate(manageKey(token))
	return &rr, nil
}

func (c *Client) SubmitReview(ctx context.Context, token string, rating int, comment string) (*Review, error) {
	var rv Review
	if err := c.do(ctx, http.MethodPost, "/bookings/manage/"+pathEscape(token)+"/review", nil, Review{Rating: rating, Comment: comment}, &rv, nil); err != nil {
		return nil, err
	}
	return &rv, nil
}

// Customer portal

func (c *Client) CustomerStats(ctx context.Context) (*ReferralStats, error) {
	return Fetch(ctx, c.cache, keyCustomerStats, func(ctx context.Context) (*ReferralStats, error) {
		var s ReferralStats
		if err := c.do(ctx, http.MethodGet, "/referrals/customer-stats", nil, nil, &s, nil); err != nil {
			return nil, err
		}
		return &s, nil
	})
}

func (c *Client) CustomerBookings(ctx context.Context, page PageOptions) ([]Booking, error) {
	key := fmt.Sprintf("%s:%d:%d", keyCustomerList, page.Limit, page.Offset)
	if page == (PageOptions{}) {
		key = keyCustomerList
	}
	return Fetch(ctx, c.cache, key, func(ctx context.Context) ([]Booking, error) {
		var list []Booking
		if err := c.do(ctx, http.MethodGet, "/customer/bookings", page, nil, &list, nil); err != nil {
			return nil, err
		}
		return list, nil
	})
}

// Content

// Content returns one CMS section as key/value pairs.
func (c *Client) Content(ctx context.Context, section string) (map[string]string, error) {
	return Fetch(ctx, c.cache, contentKey(section), func(ctx context.Context) (map[string]string, error) {
		var m map[string]string
		if err := c.do(ctx, http.MethodGet, "/cms/content/"+pathEscape(section)+"/batch", nil, nil, &m, nil); err != nil {
			return nil, err
		}
		return m, nil
	})
}

func (c *Client) SaveContent(ctx context.Context, section string, entries map[string]string) (map[string]string, error) {
	var m map[string]string
	if err := c.do(ctx, http.MethodPut, "/cms/content/"+pathEscape(section)+"/batch", nil, entries, &m, nil); err != nil {
		return nil, err
	}
	c.cache.Invalidate(contentKey(section))
	return m, nil
}

// Staff

func (c *Client) AssignedBookings(ctx context.Context, opts BookingListOptions) ([]Booking, error) {
	var list []Booking
	if err := c.do(ctx, http.MethodGet, "/employee/bookings", opts, nil, &list, nil); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) AdminBookings(ctx context.Context, opts BookingListOptions) ([]Booking, error) {
	var list []Booking
	if err := c.do(ctx, http.MethodGet, "/admin/bookings", opts, nil, &list, nil); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CompleteBooking(ctx context.Context, id int64) (*Booking, error) {
	return c.bookingAction(ctx, fmt.Sprintf("/admin/bookings/%d/complete", id))
}

func (c *Client) ChargeCancellationFee(ctx context.Context, id int64) (*Booking, error) {
	return c.bookingAction(ctx, fmt.Sprintf("/admin/bookings/%d/fee/charge", id))
}

func (c *Client) DismissCancellationFee(ctx context.Context, id int64) (*Booking, error) {
	return c.bookingAction(ctx, fmt.Sprintf("/admin/bookings/%d/fee/dismiss", id))
}

func (c *Client) bookingAction(ctx context.Context, path string) (*Booking, error) {
	var b Booking
	if err := c.do(ctx, http.MethodPost, path, nil, nil, &b, nil); err != nil {
		return nil, err
	}
	c.cache.Invalidate(manageKey(b.ManageToken))
	return &b, nil
}

func (c *Client) RescheduleRequests(ctx context.Context, status string, page PageOptions) ([]RescheduleRequest, error) {
	params := struct {
		Status string `url:"status,omitempty"`
		PageOptions
	}{status, page}
	var list []RescheduleRequest
	if err := c.do(ctx, http.MethodGet, "/admin/reschedule-requests", params, nil, &list, nil); err != nil {
		return nil, err
	}
	return list, nil
}

// DecideReschedule approves or denies a pending request. Approval moves the
// booking, so availability for every date is dropped.
func (c *Client) DecideReschedule(ctx context.Context, id int64, approve bool, note string) (*RescheduleRequest, error) {
	action := "deny"
	if approve {
		action = "approve"
	}
	body := struct {
		Note string `json:"note"`
	}{note}
	var rr RescheduleRequest
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/admin/reschedule-requests/%d/%s", id, action), nil, body, &rr, nil); err != nil {
		return nil, err
	}
	if approve {
		c.cache.InvalidatePrefix(slotsKey(""))
	}
	c.cache.InvalidatePrefix(manageKey(""))
	return &rr, nil
}
