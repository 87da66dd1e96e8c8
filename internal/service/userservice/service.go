package userservice

import (
	"context"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"gopos/internal/domain"
	apperror "gopos/internal/errors"
	"gopos/internal/pkg/logger"
)

// UserRepository define o contrato de persistência de usuários.
type UserRepository interface {
	Save(ctx context.Context, user domain.User) (domain.User, error)
	FindByEmail(ctx context.Context, email string) (domain.User, error)
}

// TokenIssuer é a parte do serviço de token (internal/pkg/token) usada no login.
type TokenIssuer interface {
	GenerateToken(user domain.User) (string, error)
}

const minPasswordLen = 6

// UserService define o serviço de lógica de negócio para a entidade User.
type UserService struct {
	repo        UserRepository
	tokens      TokenIssuer
	adminEmails map[string]bool
	logger      logger.Logger
}

// NewService cria uma nova instância do UserService. Só os e-mails de adminEmails
// podem se registrar com o papel admin.
func NewService(repo UserRepository, tokens TokenIssuer, adminEmails []string, logger logger.Logger) *UserService {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &UserService{repo: repo, tokens: tokens, adminEmails: admins, logger: logger}
}

// Register registra um novo usuário no sistema. O papel padrão é cashier.
func (s *UserService) Register(ctx context.Context, registration domain.UserRegistration) (domain.User, error) {
	email := strings.TrimSpace(registration.Email)
	if email == "" || registration.Password == "" {
		return domain.User{}, apperror.NewValidationError("Email e senha são obrigatórios.")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.User{}, apperror.NewValidationError("Email inválido.")
	}
	if len(registration.Password) < minPasswordLen {
		return domain.User{}, apperror.NewValidationError("A senha deve ter ao menos 6 caracteres.")
	}

	role := registration.Role
	switch role {
	case "":
		role = domain.RoleCashier
	case domain.RoleCashier:
	case domain.RoleAdmin:
		if !s.adminEmails[strings.ToLower(email)] {
			s.logger.Warn("Registro de admin negado.", map[string]interface{}{"email": email})
			return domain.User{}, apperror.NewValidationError("Este email não pode ser registrado como admin.")
		}
	default:
		return domain.User{}, apperror.NewValidationError("Papel inválido: use cashier ou admin.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, apperror.NewInternalError("Falha ao gerar hash da senha.", err)
	}

	// Conflict (e-mail duplicado) vem tipado do repositório.
	user, err := s.repo.Save(ctx, domain.User{Email: email, PasswordHash: string(hashed), Role: role})
	if err != nil {
		return domain.User{}, err
	}

	s.logger.Info("Usuário registrado.", map[string]interface{}{"user_id": user.ID, "role": user.Role})
	return user, nil
}

// Login autentica um usuário, verifica a senha e gera um JWT.
func (s *UserService) Login(ctx context.Context, email string, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", apperror.NewUnauthorizedError("Email e senha são obrigatórios.")
	}

	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		// 404 vira 401 para não revelar quais e-mails existem.
		if apperror.IsNotFound(err) {
			return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("Senha incorreta.", map[string]interface{}{"user_id": user.ID})
		return "", apperror.NewUnauthorizedError("Credenciais inválidas.")
	}

	tokenString, err := s.tokens.GenerateToken(user)
	if err != nil {
		return "", apperror.NewInternalError("Falha ao gerar token de autenticação.", err)
	}
	return tokenString, nil
}
