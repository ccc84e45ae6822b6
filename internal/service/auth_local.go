package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/target/folio/internal/domain/access"
	domainauth "github.com/target/folio/internal/domain/auth"
	"github.com/target/folio/internal/domain/document"
	"github.com/target/folio/internal/domain/query"
	"github.com/target/folio/internal/domain/schema"
	apperrors "github.com/target/folio/internal/errors"
	"github.com/target/folio/internal/ports"
)

// ErrAlreadyInitialized is returned by RegisterFirstUser once any admin user exists.
var ErrAlreadyInitialized = errors.New("first user already registered")

const forgotPasswordWindow = time.Minute

// FirstUserInput registers the initial admin user.
type FirstUserInput struct {
	Email    string
	Password string
	// Data holds any other user fields.
	Data map[string]any
}

// RegisterFirstUser creates the first admin user and signs it in. It is only
// available while the admin user collection is empty.
func (s *AuthService) RegisterFirstUser(ctx context.Context, in FirstUserInput) (*LoginResult, error) {
	col, ok := s.cfg.Schema.Collection(s.cfg.UserSlug)
	if !ok {
		return nil, apperrors.NotFoundf("auth collection %q not found", s.cfg.UserSlug)
	}
	existing, err := s.docs.Find(ctx, FindRequest{
		Collection:        col.Slug,
		Limit:             1,
		DisablePagination: true,
		Caller:            Caller{OverrideAccess: true},
	})
	if err != nil {
		return nil, err
	}
	if len(existing.Docs) > 0 {
		if s.cfg.Init != nil {
			s.cfg.Init.MarkReady()
		}
		return nil, apperrors.Wrap(ErrAlreadyInitialized, apperrors.ErrCodeForbidden, "the first user has already been registered")
	}
	if in.Password == "" {
		return nil, apperrors.ValidationField("password", "This field is required.")
	}

	data := make(map[string]any, len(in.Data)+3)
	for k, v := range in.Data {
		data[k] = v
	}
	data["email"] = in.Email
	data["password"] = in.Password
	data[schema.KeyVerified] = true

	created, err := s.docs.Create(ctx, WriteRequest{
		Collection: col.Slug,
		Data:       data,
		Caller:     Caller{OverrideAccess: true},
	})
	if err != nil {
		return nil, err
	}
	if s.cfg.Init != nil {
		s.cfg.Init.MarkReady()
	}

	user := userFromFlat(col.Slug, domainauth.StrategyLocal, created)
	sess, err := s.saveSession(ctx, user, s.clock().Add(s.sessionTTL(col)))
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "first user registered", "collection", col.Slug, "id", user.ID)
	return &LoginResult{Session: sess, User: user}, nil
}

// ForgotPasswordInput requests a password reset email.
type ForgotPasswordInput struct {
	Collection string
	Email      string
}

// ForgotPassword emails a reset link when the email belongs to a user. It
// succeeds whether or not the email is known, and sends at most one email per
// address each minute.
func (s *AuthService) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
	col, err := s.localCollection(in.Collection)
	if err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return apperrors.ValidationField("email", "This field is required.")
	}

	if s.cfg.Throttle != nil {
		first, err := s.cfg.Throttle.SetIfNotExists(ctx, "forgot:"+col.Slug+":"+email, []byte("1"), forgotPasswordWindow)
		if err != nil {
			s.logger.WarnContext(ctx, "forgot password throttle unavailable", "error", err)
		} else if !first {
			return nil
		}
	}

	flat, err := s.findAuthDoc(ctx, col.Slug, query.Equals("email", email))
	if err != nil {
		return err
	}
	if flat == nil {
		return nil
	}

	token := uuid.NewString()
	id, _ := flat["id"].(string)
	if _, err := s.docs.Update(ctx, WriteRequest{
		Collection: col.Slug,
		ID:         id,
		Data: map[string]any{
			schema.KeyResetPasswordToken:      hashToken(token),
			schema.KeyResetPasswordExpiration: s.clock().Add(s.cfg.ResetTokenTTL).UTC().Format(time.RFC3339),
		},
		Caller: Caller{OverrideAccess: true},
	}); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if s.cfg.Mail.Mailer == nil {
		s.logger.WarnContext(ctx, "no mailer configured; reset email not sent", "collection", col.Slug, "id", id)
		return nil
	}
	link := strings.TrimRight(s.cfg.Mail.AdminURL, "/") + "/reset/" + token
	if err := s.cfg.Mail.Mailer.Send(ctx, ports.MailMessage{
		To:      email,
		Subject: "Reset your password",
		Body:    "You are receiving this because you (or someone else) requested a password reset.\n\n" + link + "\n\nIf you did not request this, ignore this email.\n",
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to send reset email", "collection", col.Slug, "id", id, "error", err)
	}
	return nil
}

// ResetPasswordInput completes a password reset.
type ResetPasswordInput struct {
	Collection string
	Token      string
	Password   string
}

// ResetPassword sets a new password from a reset token, revokes the user's
// other sessions and signs the user in.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*LoginResult, error) {
	col, err := s.localCollection(in.Collection)
	if err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, apperrors.ValidationField("password", "This field is required.")
	}
	invalid := apperrors.Forbidden("Token is either invalid or has expired.")
	if in.Token == "" {
		return nil, invalid
	}

	flat, err := s.findAuthDoc(ctx, col.Slug, query.Equals(schema.KeyResetPasswordToken, hashToken(in.Token)))
	if err != nil {
		return nil, err
	}
	if flat == nil {
		return nil, invalid
	}
	raw, _ := flat[schema.KeyResetPasswordExpiration].(string)
	expires, err := time.Parse(time.RFC3339, raw)
	if err != nil || !expires.After(s.clock()) {
		return nil, invalid
	}

	id, _ := flat["id"].(string)
	updated, err := s.docs.Update(ctx, WriteRequest{
		Collection: col.Slug,
		ID:         id,
		Data: map[string]any{
			"password":                        in.Password,
			schema.KeyResetPasswordToken:      nil,
			schema.KeyResetPasswordExpiration: nil,
			schema.KeyLoginAttempts:           0,
			schema.KeyLockUntil:               nil,
		},
		Caller: Caller{OverrideAccess: true},
	})
	if err != nil {
		return nil, err
	}
	s.revokeSessions(ctx, col.Slug, id)

	user := userFromFlat(col.Slug, domainauth.StrategyLocal, updated)
	sess, err := s.saveSession(ctx, user, s.clock().Add(s.sessionTTL(col)))
	if err != nil {
		return nil, err
	}
	return &LoginResult{Session: sess, User: user}, nil
}

// VerifyEmail marks the user holding token as verified.
func (s *AuthService) VerifyEmail(ctx context.Context, collection, token string) error {
	col, ok := s.cfg.Schema.Collection(collection)
	if !ok || !col.VerifyRouteEnabled() {
		return apperrors.NotFoundf("collection %q does not verify emails", collection)
	}
	if token == "" {
		return apperrors.NotFound("invalid verification token")
	}
	flat, err := s.findAuthDoc(ctx, col.Slug, query.Equals(schema.KeyVerificationToken, token))
	if err != nil {
		return err
	}
	if flat == nil {
		return apperrors.NotFound("invalid verification token")
	}
	id, _ := flat["id"].(string)
	if _, err := s.docs.Update(ctx, WriteRequest{
		Collection: col.Slug,
		ID:         id,
		Data:       map[string]any{schema.KeyVerified: true, schema.KeyVerificationToken: nil},
		Caller:     Caller{OverrideAccess: true},
	}); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email verified", "collection", col.Slug, "id", id)
	return nil
}

// RotateAPIKeyInput generates a new API key for a user.
type RotateAPIKeyInput struct {
	Collection string
	ID         string
	Caller     Caller
}

// RotateAPIKey enables API-key auth for the user and returns the new key.
// Only its keyed hash is stored, so the key cannot be read back later.
func (s *AuthService) RotateAPIKey(ctx context.Context, in RotateAPIKeyInput) (string, error) {
	col, ok := s.cfg.Schema.Collection(in.Collection)
	if !ok || !col.IsAuth() || !col.Auth.UseAPIKey {
		return "", apperrors.NotFoundf("collection %q does not use API keys", in.Collection)
	}
	if s.cfg.APIKeys == nil {
		return "", apperrors.Internal("API keys are not configured")
	}
	if err := s.authorizeSelfOrUpdate(in.Caller, col.Slug, in.ID); err != nil {
		return "", err
	}

	key := uuid.NewString()
	if _, err := s.docs.Update(ctx, WriteRequest{
		Collection: col.Slug,
		ID:         in.ID,
		Data: map[string]any{
			schema.KeyEnableAPIKey: true,
			schema.KeyAPIKeyIndex:  s.cfg.APIKeys.Index(key),
		},
		Caller: Caller{OverrideAccess: true},
	}); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "api key rotated", "collection", col.Slug, "id", in.ID)
	return key, nil
}

func (s *AuthService) authorizeSelfOrUpdate(c Caller, collection, id string) error {
	if c.OverrideAccess {
		return nil
	}
	if c.User == nil {
		return apperrors.Unauthorized("you must be signed in to perform this action")
	}
	if c.User.Collection == collection && c.User.ID == id {
		return nil
	}
	if s.cfg.Access != nil && s.cfg.Access.Allowed(c.User, access.EntityCollection, collection, access.ActionUpdate) {
		return nil
	}
	return apperrors.Forbidden("you are not allowed to perform this action")
}

// Me returns the signed-in user with hidden fields removed.
func (s *AuthService) Me(user *domainauth.User) map[string]any {
	if user == nil {
		return nil
	}
	col, ok := s.cfg.Schema.Collection(user.Collection)
	if !ok {
		return user.Claims()
	}
	return document.StripHidden(col.Fields, user.Claims(), col.IsAuth())
}

func (s *AuthService) revokeSessions(ctx context.Context, collection, userID string) {
	revoker, ok := s.sessions.(ports.SessionRevoker)
	if !ok {
		return
	}
	if err := revoker.DeleteForUser(ctx, collection, userID); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke sessions", "collection", collection, "id", userID, "error", err)
	}
}

// hashToken returns the stored form of a reset token.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
