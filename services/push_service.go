package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"dateblue_server/models"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// ErrSubscriptionGone means the push service reported the stored
// subscription as permanently invalid.
var ErrSubscriptionGone = errors.New("push subscription gone")

// PushSender delivers one payload to one stored subscription.
type PushSender interface {
	Send(ctx context.Context, subscription string, payload models.PushPayload) error
}

// WebPushSender sends through the Web Push protocol with VAPID auth.
type WebPushSender struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
}

// NewWebPushSenderFromEnv builds a sender from the VAPID_* environment
// variables.
func NewWebPushSenderFromEnv() *WebPushSender {
	return &WebPushSender{
		Subscriber:      os.Getenv("VAPID_SUBSCRIBER"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
	}
}

func (w *WebPushSender) Send(ctx context.Context, subscription string, payload models.PushPayload) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(subscription), &sub); err != nil {
		return fmt.Errorf("invalid push subscription: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, &sub, &webpush.Options{
		Subscriber:      w.Subscriber,
		VAPIDPublicKey:  w.VAPIDPublicKey,
		VAPIDPrivateKey: w.VAPIDPrivateKey,
		TTL:             30,
	})
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return ErrSubscriptionGone
	}
	return nil
}

// NotificationService builds push payloads from already-resolved profile
// data and fans them out. Delivery is best effort: failures are logged and
// never reach the interaction or cleanup write paths.
type NotificationService struct {
	Profiles *UserProfileService
	Sender   PushSender
}

// SendLikeReceived notifies the target that someone liked them. The liker's
// identity stays hidden; the payload carries only the blurred variant of
// their primary photo, when the image pipeline has produced one. No
// subscription or no blurred photo is a no-op, not a failure.
func (n *NotificationService) SendLikeReceived(ctx context.Context, targetID, fromUserID string) {
	target, err := n.Profiles.GetProfile(ctx, targetID)
	if err != nil {
		log.Printf("Could not load profile %s for like notification: %v", targetID, err)
		return
	}
	if target == nil || target.PushSubscription == "" {
		log.Printf("No push subscription for %s, skipping like notification", targetID)
		return
	}

	payload := models.PushPayload{
		Title: "Someone likes you!",
		Body:  "Someone just liked your profile. Open DateBlue to find out who!",
		Data: models.PushData{
			Type:   models.PushTypeLikeReceived,
			UserID: fromUserID,
		},
	}

	liker, err := n.Profiles.GetProfile(ctx, fromUserID)
	if err != nil {
		log.Printf("Could not load liker %s for blurred photo: %v", fromUserID, err)
	} else if liker != nil {
		payload.ImageURL = liker.FirstBlurredPhoto()
	}

	n.deliver(ctx, targetID, target.PushSubscription, payload, "like")
}

// SendMatchNotifications notifies both participants of a new match.
func (n *NotificationService) SendMatchNotifications(ctx context.Context, user1ID, user2ID string) {
	profile1, err := n.Profiles.GetProfile(ctx, user1ID)
	if err != nil {
		log.Printf("Could not load profile %s for match notification: %v", user1ID, err)
	}
	profile2, err := n.Profiles.GetProfile(ctx, user2ID)
	if err != nil {
		log.Printf("Could not load profile %s for match notification: %v", user2ID, err)
	}

	n.sendMatchTo(ctx, user1ID, profile1, user2ID, profile2)
	n.sendMatchTo(ctx, user2ID, profile2, user1ID, profile1)
}

func (n *NotificationService) sendMatchTo(ctx context.Context, userID string, profile *models.UserProfile, otherID string, other *models.UserProfile) {
	if profile == nil || profile.PushSubscription == "" {
		log.Printf("No push subscription for %s, skipping match notification", userID)
		return
	}

	otherName := "Someone"
	if other != nil && other.FullName != "" {
		otherName = other.FullName
	}

	payload := models.PushPayload{
		Title: "It's a Match!",
		Body:  fmt.Sprintf("You and %s like each other! Start chatting now.", otherName),
		Data: models.PushData{
			Type:   models.PushTypeMatch,
			UserID: otherID,
		},
	}

	n.deliver(ctx, userID, profile.PushSubscription, payload, "match")
}

func (n *NotificationService) deliver(ctx context.Context, userID, subscription string, payload models.PushPayload, kind string) {
	err := n.Sender.Send(ctx, subscription, payload)
	if err == nil {
		log.Printf("Sent %s notification to %s", kind, userID)
		return
	}
	if errors.Is(err, ErrSubscriptionGone) {
		log.Printf("Push subscription for %s is gone, clearing it", userID)
		if clearErr := n.Profiles.ClearPushSubscription(ctx, userID); clearErr != nil {
			log.Printf("Failed to clear push subscription for %s: %v", userID, clearErr)
		}
		return
	}
	log.Printf("Failed to send %s notification to %s: %v", kind, userID, err)
}
