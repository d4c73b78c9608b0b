package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/domain/client"
	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
	"github.com/wellness/wellness/internal/platform/httputil"
	"github.com/wellness/wellness/internal/platform/metrics"
)

// ClientLookup finds the master record linked to a client user.
type ClientLookup interface {
	GetByClientID(ctx context.Context, clientID int64) (*client.Client, error)
}

type Service struct {
	repo      Repository
	issuer    *auth.TokenIssuer
	allowlist *auth.Allowlist
	clients   ClientLookup
	logger    zerolog.Logger
}

func NewService(repo Repository, issuer *auth.TokenIssuer, allowlist *auth.Allowlist,
	clients ClientLookup, logger zerolog.Logger) *Service {
	return &Service{repo: repo, issuer: issuer, allowlist: allowlist, clients: clients, logger: logger}
}

const ModeClient = "client"

type LoginRequest struct {
	Email     string           `json:"email"`
	Password  string           `json:"password"`
	Mode      string           `json:"mode"`
	Name      string           `json:"name"`
	ClientID  httputil.FlexInt `json:"client_id"`
	CompanyID httputil.FlexInt `json:"company_id"`
}

type Session struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

// Login authenticates an existing user or, on first login, creates a client
// (mode "client") or an allowlisted nutritionist. created reports whether a
// user was created. Admins are never created here.
func (s *Service) Login(ctx context.Context, req LoginRequest) (sess *Session, created bool, err error) {
	defer func() {
		switch {
		case err == nil && created:
			metrics.ObserveLogin("created")
		case err == nil:
			metrics.ObserveLogin("ok")
		default:
			metrics.ObserveLogin(apperr.KindOf(err).String())
		}
	}()

	email := auth.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, false, apperr.Invalid("email and password required")
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, false, apperr.Internal("Login failed", err)
	}
	if existing != nil {
		if existing.Role == auth.RoleNutritionist && !s.allowlist.Contains(email) {
			return nil, false, apperr.Forbidden("This email is not authorized for staff access.")
		}
		if !auth.CheckPassword(existing.PasswordHash, req.Password) {
			return nil, false, apperr.Unauthorized("Invalid credentials")
		}
		sess, err := s.session(existing)
		return sess, false, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	u := &User{Name: name, Email: email}
	switch {
	case req.Mode == ModeClient:
		u.Role = auth.RoleClient
		u.ClientID = req.ClientID.Ptr()
		u.CompanyID = req.CompanyID.Ptr()
	case s.allowlist.Contains(email):
		u.Role = auth.RoleNutritionist
	default:
		return nil, false, apperr.Forbidden("This email is not authorized to access the dashboard.")
	}
	if err := s.create(ctx, u, req.Password); err != nil {
		return nil, false, err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user created on first login")
	sess, err = s.session(u)
	return sess, true, err
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates an allowlisted nutritionist account.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Session, error) {
	name := strings.TrimSpace(req.Name)
	email := auth.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" || req.Role == "" {
		return nil, apperr.Invalid("name, email, password, role required")
	}
	switch req.Role {
	case auth.RoleNutritionist:
	case auth.RoleAdmin:
		return nil, apperr.Forbidden("Admin accounts cannot be self-registered.")
	default:
		return nil, apperr.Invalid("role must be nutritionist")
	}
	if !s.allowlist.Contains(email) {
		return nil, apperr.Forbidden("Email is not permitted to register as staff.")
	}
	existing, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("Register failed", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("email already exists")
	}

	u := &User{Name: name, Email: email, Role: auth.RoleNutritionist}
	if err := s.create(ctx, u, req.Password); err != nil {
		return nil, err
	}
	return s.session(u)
}

// SeedAdmin creates an admin user. It is only reachable from the CLI.
func (s *Service) SeedAdmin(ctx context.Context, name, email, password string) (*User, error) {
	name = strings.TrimSpace(name)
	email = auth.NormalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Invalid("name, email and password are required")
	}
	u := &User{Name: name, Email: email, Role: auth.RoleAdmin}
	if err := s.create(ctx, u, password); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) create(ctx context.Context, u *User, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Internal("Failed to create user", err)
	}
	u.PasswordHash = hash
	if err := s.repo.Create(ctx, u); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return err
		}
		return apperr.Internal("Failed to create user", err)
	}
	return nil
}

func (s *Service) session(u *User) (*Session, error) {
	token, err := s.issuer.Issue(auth.Principal{
		ID:    u.ID.String(),
		Role:  u.Role,
		Name:  u.Name,
		Email: u.Email,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to issue token", err)
	}
	return &Session{Token: token, User: u.Public()}, nil
}

type HomeUser struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	ClientID  *int64 `json:"client_id"`
	CompanyID *int64 `json:"company_id"`
}

type Home struct {
	User   HomeUser       `json:"user"`
	Client *client.Client `json:"client"`
}

// ClientHome returns the calling client's own record and linked master client.
func (s *Service) ClientHome(ctx context.Context, p auth.Principal) (*Home, error) {
	if !p.IsClient() {
		return nil, apperr.Forbidden("Forbidden")
	}
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return nil, apperr.NotFound("User not found")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	home := &Home{User: HomeUser{Name: u.Name, Email: u.Email, ClientID: u.ClientID, CompanyID: u.CompanyID}}
	if u.ClientID != nil {
		c, err := s.clients.GetByClientID(ctx, *u.ClientID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		home.Client = c
	}
	return home, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	return s.repo.ListByIDs(ctx, ids)
}

// Update patches a user's name, email or company. Emails are normalized.
func (s *Service) Update(ctx context.Context, id uuid.UUID, p UserPatch) (*User, error) {
	if p.IsEmpty() {
		return nil, apperr.Invalid("No updatable fields provided")
	}
	if p.Email != nil {
		e := auth.NormalizeEmail(*p.Email)
		if e == "" {
			return nil, apperr.Invalid("email must not be empty")
		}
		p.Email = &e
	}
	return s.repo.Update(ctx, id, p)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return apperr.Internal("Failed to delete user", err)
	}
	if n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}
