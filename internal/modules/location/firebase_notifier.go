// README: Pushes ride requests to a driver's device through Firebase Cloud Messaging.
package location

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"

	"github.com/guetchou/BantuDelice-sub001/internal/types"
)

// RideRequestInfo is the payload a requested driver receives.
type RideRequestInfo struct {
	RideID             types.ID
	PickupAddress      string
	Pickup             types.Point
	DestinationAddress string
	Destination        types.Point
	EstimatedPrice     types.Money
}

type tokenLookup interface {
	DeviceToken(ctx context.Context, driverID types.ID) (string, error)
}

type messageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FirebaseNotifier resolves the driver's push token from the location store
// and sends a high-priority FCM data message.
type FirebaseNotifier struct {
	tokens tokenLookup
	sender messageSender
	logger *slog.Logger
}

func NewFirebaseNotifier(ctx context.Context, app *firebase.App, tokens tokenLookup, logger *slog.Logger) (*FirebaseNotifier, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialising firebase messaging client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FirebaseNotifier{tokens: tokens, sender: client, logger: logger}, nil
}

// NotifyRideRequest tells the driver a passenger asked for them.
func (n *FirebaseNotifier) NotifyRideRequest(ctx context.Context, driverID types.ID, info RideRequestInfo) error {
	token, err := n.tokens.DeviceToken(ctx, driverID)
	if err != nil {
		return fmt.Errorf("looking up device token for driver %s: %w", driverID, err)
	}
	if token == "" {
		return fmt.Errorf("no device token for driver %s", driverID)
	}

	msg := &messaging.Message{
		Token: token,
		Data: map[string]string{
			"type":                "ride_request",
			"ride_id":             string(info.RideID),
			"pickup_address":      info.PickupAddress,
			"pickup_lat":          strconv.FormatFloat(info.Pickup.Lat, 'f', 6, 64),
			"pickup_lng":          strconv.FormatFloat(info.Pickup.Lng, 'f', 6, 64),
			"destination_address": info.DestinationAddress,
			"destination_lat":     strconv.FormatFloat(info.Destination.Lat, 'f', 6, 64),
			"destination_lng":     strconv.FormatFloat(info.Destination.Lng, 'f', 6, 64),
			"estimated_price":     strconv.FormatInt(info.EstimatedPrice.Amount, 10),
			"currency":            info.EstimatedPrice.Currency,
		},
		Notification: &messaging.Notification{
			Title: "Nouvelle course",
			Body:  fmt.Sprintf("%s, environ %d %s", info.PickupAddress, info.EstimatedPrice.Amount, info.EstimatedPrice.Currency),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}

	messageID, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sending FCM for ride %s: %w", info.RideID, err)
	}
	n.logger.Info("driver notified", "ride_id", info.RideID, "driver_id", driverID, "message_id", messageID)
	return nil
}
