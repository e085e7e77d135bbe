package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

func TestAuth(t *testing.T) {
	gomega.RegisterFailHandler(ginkgo.Fail)
	ginkgo.RunSpecs(t, "Auth Module Suite")
}

// Mock UserRepository for testing
type mockUserRepository struct {
	hashes    map[string]string
	byEmail   map[string]*User
	byID      map[int64]*User
	repoError error
}

func newMockUserRepository() *mockUserRepository {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correct_password"), bcrypt.DefaultCost)

	users := []*User{
		{ID: 1, Email: "sari@mail.com", Role: "user", Status: "active"},
		{ID: 2, Email: "padil@mail.com", Role: "admin", Status: "active"},
		{ID: 3, Email: "off@mail.com", Role: "user", Status: "inactive"},
		{ID: 4, Email: "banned@mail.com", Role: "user", Status: "suspended"},
	}

	repo := &mockUserRepository{
		hashes:  make(map[string]string),
		byEmail: make(map[string]*User),
		byID:    make(map[int64]*User),
	}
	for _, u := range users {
		repo.hashes[u.Email] = string(hashedPassword)
		repo.byEmail[u.Email] = u
		repo.byID[u.ID] = u
	}
	return repo
}

func (m *mockUserRepository) GetCredentialsByEmail(email string) (string, *User, error) {
	if m.repoError != nil {
		return "", nil, m.repoError
	}
	u, exists := m.byEmail[email]
	if !exists {
		return "", nil, errors.New("user not found")
	}
	return m.hashes[email], u, nil
}

func (m *mockUserRepository) GetByID(userID int64) (*User, error) {
	if m.repoError != nil {
		return nil, m.repoError
	}
	u, exists := m.byID[userID]
	if !exists {
		return nil, errors.New("user not found")
	}
	return u, nil
}

var _ = ginkgo.Describe("AuthService", func() {
	var (
		service  *Service
		mockRepo *mockUserRepository
		tokenGen *JWTTokenGenerator
	)

	ginkgo.BeforeEach(func() {
		mockRepo = newMockUserRepository()
		tokenGen = NewJWTTokenGenerator(
			"test-access-secret-at-least-32-bytes!",
			"test-refresh-secret-at-least-32-byte!",
			15*time.Minute,
			7*24*time.Hour,
		)
		service = NewService(mockRepo, tokenGen)
	})

	ginkgo.Describe("Authenticate", func() {
		ginkgo.It("should return tokens for valid credentials", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "sari@mail.com", Password: "correct_password"})

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(tokens.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(tokens.RefreshToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("should reject a wrong password", func() {
			_, err := service.Authenticate(LoginDTO{Email: "sari@mail.com", Password: "wrong"})

			gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
		})

		ginkgo.It("should reject an unknown email", func() {
			_, err := service.Authenticate(LoginDTO{Email: "nobody@mail.com", Password: "correct_password"})

			gomega.Expect(err).To(gomega.Equal(ErrInvalidCredentials))
		})

		ginkgo.It("should reject an inactive account", func() {
			_, err := service.Authenticate(LoginDTO{Email: "off@mail.com", Password: "correct_password"})

			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})

		ginkgo.It("should reject a suspended account", func() {
			_, err := service.Authenticate(LoginDTO{Email: "banned@mail.com", Password: "correct_password"})

			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})

		ginkgo.It("should validate the payload", func() {
			_, err := service.Authenticate(LoginDTO{Email: "", Password: ""})

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("ValidateAccessToken", func() {
		ginkgo.It("should round-trip claims through a signed token", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "padil@mail.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			claims, err := service.ValidateAccessToken(tokens.AccessToken)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(claims.UserID).To(gomega.Equal("2"))
			gomega.Expect(claims.Email).To(gomega.Equal("padil@mail.com"))
			gomega.Expect(claims.Role).To(gomega.Equal("admin"))
		})

		ginkgo.It("should reject garbage", func() {
			_, err := service.ValidateAccessToken("not.a.token")

			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})

		ginkgo.It("should reject a token signed with another secret", func() {
			other := NewJWTTokenGenerator(
				"completely-different-access-secret!!",
				"completely-different-refresh-secret!",
				15*time.Minute,
				7*24*time.Hour,
			)
			token, err := other.GenerateAccessToken(&User{ID: 1, Email: "sari@mail.com", Role: "user"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			_, err = service.ValidateAccessToken(token)

			gomega.Expect(err).To(gomega.Equal(ErrInvalidToken))
		})

		ginkgo.It("should reject an expired token", func() {
			shortLived := NewJWTTokenGenerator(
				"test-access-secret-at-least-32-bytes!",
				"test-refresh-secret-at-least-32-byte!",
				time.Nanosecond,
				7*24*time.Hour,
			)
			token, err := shortLived.GenerateAccessToken(&User{ID: 1, Email: "sari@mail.com", Role: "user"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			time.Sleep(10 * time.Millisecond)
			_, err = tokenGen.ValidateToken(token)

			gomega.Expect(err).To(gomega.Equal(ErrTokenExpired))
		})
	})

	ginkgo.Describe("RefreshTokens", func() {
		ginkgo.It("should issue a fresh pair from a valid refresh token", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "sari@mail.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			renewed, err := service.RefreshTokens(tokens.RefreshToken)

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(renewed.AccessToken).ToNot(gomega.BeEmpty())
			gomega.Expect(renewed.RefreshToken).ToNot(gomega.BeEmpty())
		})

		ginkgo.It("should reject a refresh for a deactivated account", func() {
			tokens, err := service.Authenticate(LoginDTO{Email: "sari@mail.com", Password: "correct_password"})
			gomega.Expect(err).ToNot(gomega.HaveOccurred())

			mockRepo.byID[1].Status = "inactive"
			defer func() { mockRepo.byID[1].Status = "active" }()

			_, err = service.RefreshTokens(tokens.RefreshToken)

			gomega.Expect(err).To(gomega.Equal(ErrUserInactive))
		})

		ginkgo.It("should reject an invalid refresh token", func() {
			_, err := service.RefreshTokens("bogus")

			gomega.Expect(err).To(gomega.HaveOccurred())
		})
	})

	ginkgo.Describe("HashPassword", func() {
		ginkgo.It("should produce a verifiable bcrypt hash", func() {
			hash, err := service.HashPassword("s3cret")

			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			gomega.Expect(bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret"))).To(gomega.Succeed())
		})
	})
})
