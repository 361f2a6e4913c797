package oanda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rustyeddy/atlas/broker"
	"github.com/rustyeddy/atlas/market"
	"go.uber.org/zap"
)

type clientExtensions struct {
	ID      string `json:"id,omitempty"`
	Tag     string `json:"tag,omitempty"`
	Comment string `json:"comment,omitempty"`
}

type orderSpec struct {
	Type             string            `json:"type"`
	Instrument       string            `json:"instrument"`
	Units            string            `json:"units"`
	Price            string            `json:"price"`
	TimeInForce      string            `json:"timeInForce"`
	PositionFill     string            `json:"positionFill"`
	ClientExtensions *clientExtensions `json:"clientExtensions,omitempty"`
}

type orderRequest struct {
	Order orderSpec `json:"order"`
}

type transaction struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// errDuplicateClientID is OANDA's reject code when a client order id is
// reused, which happens when a retried POST already landed.
const errDuplicateClientID = "CLIENT_ORDER_ID_ALREADY_EXISTS"

type existingOrder struct {
	Order struct {
		ID    string `json:"id"`
		State string `json:"state"`
	} `json:"order"`
}

type orderResponse struct {
	OrderCreateTransaction *transaction `json:"orderCreateTransaction,omitempty"`
	OrderCancelTransaction *transaction `json:"orderCancelTransaction,omitempty"`
	OrderRejectTransaction *transaction `json:"orderRejectTransaction,omitempty"`
	ErrorMessage           string       `json:"errorMessage,omitempty"`
}

func toSpec(req broker.OrderRequest, session string) (orderSpec, error) {
	if req.Quantity <= 0 {
		return orderSpec{}, fmt.Errorf("quantity must be positive, got %d", req.Quantity)
	}
	units := req.Quantity
	if req.Side == broker.Sell {
		units = -units
	}

	tif := req.TimeInForce
	if tif == "" {
		tif = broker.GTC
	}

	// Protective legs only ever close the entry, never open a short.
	fill := "DEFAULT"
	if req.OCA {
		fill = "REDUCE_ONLY"
	}

	spec := orderSpec{
		Type:         string(req.Kind),
		Instrument:   market.Instrument(req.Symbol),
		Units:        strconv.FormatInt(units, 10),
		Price:        strconv.FormatFloat(req.Price, 'f', -1, 64),
		TimeInForce:  string(tif),
		PositionFill: fill,
	}
	if req.ClientID != "" || req.Group != "" {
		spec.ClientExtensions = &clientExtensions{
			ID:      req.ClientID,
			Tag:     req.Group,
			Comment: "session " + session,
		}
	}
	return spec, nil
}

// SubmitOrder places one leg as a pending LIMIT or STOP order. The group
// id travels in the client extension tag.
func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	spec, err := toSpec(req, c.Session())
	if err != nil {
		return broker.OrderAck{}, err
	}

	var resp orderResponse
	path := fmt.Sprintf("/v3/accounts/%s/orders", c.accountID)
	if err := c.do(ctx, http.MethodPost, path, nil, orderRequest{Order: spec}, &resp); err != nil {
		if apiErr, ok := asAPIError(err); ok && !errors.Is(err, broker.ErrDisconnected) {
			if apiErr.Code == errDuplicateClientID && req.ClientID != "" {
				return c.orderByClientID(ctx, req)
			}
			return broker.OrderAck{}, fmt.Errorf("%s %s %s: %w: %s", req.Symbol, req.Side, req.Kind, broker.ErrRejected, apiErr.Message)
		}
		return broker.OrderAck{}, fmt.Errorf("%s %s %s: %w", req.Symbol, req.Side, req.Kind, err)
	}

	if resp.OrderCancelTransaction != nil {
		return broker.OrderAck{}, fmt.Errorf("%s %s %s: %w: cancelled on create: %s",
			req.Symbol, req.Side, req.Kind, broker.ErrRejected, resp.OrderCancelTransaction.Reason)
	}
	if resp.OrderCreateTransaction == nil {
		return broker.OrderAck{}, fmt.Errorf("%s %s %s: %w: no create transaction", req.Symbol, req.Side, req.Kind, broker.ErrRejected)
	}

	c.log.Debug("oanda order created",
		zap.String("order_id", resp.OrderCreateTransaction.ID),
		zap.String("client_id", req.ClientID),
		zap.String("group", req.Group),
	)
	return broker.OrderAck{
		OrderID:  resp.OrderCreateTransaction.ID,
		ClientID: req.ClientID,
		Status:   "PENDING",
	}, nil
}

// orderByClientID recovers the ack of an order an earlier attempt
// already placed.
func (c *Client) orderByClientID(ctx context.Context, req broker.OrderRequest) (broker.OrderAck, error) {
	var resp existingOrder
	path := fmt.Sprintf("/v3/accounts/%s/orders/@%s", c.accountID, req.ClientID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return broker.OrderAck{}, fmt.Errorf("look up client order %s: %w", req.ClientID, err)
	}
	switch resp.Order.State {
	case "PENDING", "FILLED", "TRIGGERED":
	default:
		return broker.OrderAck{}, fmt.Errorf("%s %s %s: %w: existing order %s is %s",
			req.Symbol, req.Side, req.Kind, broker.ErrRejected, resp.Order.ID, resp.Order.State)
	}

	c.log.Warn("oanda order already placed",
		zap.String("order_id", resp.Order.ID),
		zap.String("client_id", req.ClientID),
		zap.String("state", resp.Order.State),
	)
	return broker.OrderAck{OrderID: resp.Order.ID, ClientID: req.ClientID, Status: resp.Order.State}, nil
}

// CancelOrder cancels a pending order by id.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/v3/accounts/%s/orders/%s/cancel", c.accountID, orderID)
	if err := c.do(ctx, http.MethodPut, path, nil, nil, nil); err != nil {
		return fmt.Errorf("cancel order %s: %w", orderID, err)
	}
	return nil
}
