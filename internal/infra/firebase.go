// README: Firebase project handle; resolves callers from ID tokens and hands the app to FCM.
package infra

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var ErrNoSubject = errors.New("firebase: token has no subject")

// Caller is the account a verified ID token speaks for. Role is the "role"
// custom claim, empty when the account has none.
type Caller struct {
	UID  string
	Role string
}

type CallerVerifier interface {
	VerifyCaller(ctx context.Context, idToken string) (Caller, error)
}

// Firebase wraps one Admin SDK app. The auth client is opened eagerly so a
// bad project id fails at boot rather than on the first request.
type Firebase struct {
	app  *firebase.App
	auth *auth.Client
}

// OpenFirebase uses credentialsFile when set, application-default
// credentials otherwise.
func OpenFirebase(ctx context.Context, projectID, credentialsFile string) (*Firebase, error) {
	if projectID == "" {
		return nil, errors.New("firebase: project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("open firebase project %s: %w", projectID, err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("open firebase auth: %w", err)
	}
	return &Firebase{app: app, auth: client}, nil
}

// App is shared with the FCM notifier.
func (f *Firebase) App() *firebase.App { return f.app }

func (f *Firebase) VerifyCaller(ctx context.Context, idToken string) (Caller, error) {
	tok, err := f.auth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Caller{}, err
	}
	return callerFromClaims(tok.UID, tok.Claims)
}

func callerFromClaims(uid string, claims map[string]interface{}) (Caller, error) {
	if uid == "" {
		return Caller{}, ErrNoSubject
	}
	role, _ := claims["role"].(string)
	return Caller{UID: uid, Role: role}, nil
}
