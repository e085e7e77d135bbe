package permission_test

import (
	"errors"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/noeralma/procure-flow-organize-sub000/internal"
	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
	"github.com/noeralma/procure-flow-organize-sub000/internal/user"
)

// Mock repository for testing. Statuses are mutated only through
// UpdateIfStatus so conditional-update semantics match the real repository.
type mockPermissionRepository struct {
	requests    map[string]*permission.PermissionRequest
	order       []string
	createError error
	getError    error
	listError   error
}

func newMockPermissionRepository() *mockPermissionRepository {
	return &mockPermissionRepository{
		requests: make(map[string]*permission.PermissionRequest),
		order:    make([]string, 0),
	}
}

func (m *mockPermissionRepository) Create(req *permission.PermissionRequest) error {
	if m.createError != nil {
		return m.createError
	}
	for _, existing := range m.requests {
		if existing.UserID == req.UserID &&
			existing.PengadaanID == req.PengadaanID &&
			existing.PermissionType == req.PermissionType &&
			existing.Status == permission.StatusPending {
			return internal.ErrDuplicatePending
		}
	}
	clone := *req
	m.requests[req.ID] = &clone
	m.order = append(m.order, req.ID)
	return nil
}

func (m *mockPermissionRepository) GetByID(id string) (*permission.PermissionRequest, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	req, exists := m.requests[id]
	if !exists {
		return nil, internal.ErrPermissionNotFound
	}
	clone := *req
	return &clone, nil
}

func (m *mockPermissionRepository) FindPending(userID, pengadaanID int64, permissionType string) (*permission.PermissionRequest, error) {
	for _, req := range m.requests {
		if req.UserID == userID && req.PengadaanID == pengadaanID &&
			req.PermissionType == permissionType && req.Status == permission.StatusPending {
			clone := *req
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockPermissionRepository) FindActiveGrant(userID, pengadaanID int64, permissionType string, now time.Time) (*permission.PermissionRequest, error) {
	for _, req := range m.requests {
		if req.UserID == userID && req.PengadaanID == pengadaanID &&
			req.PermissionType == permissionType && req.Status == permission.StatusApproved &&
			req.ExpiresAt != nil && req.ExpiresAt.After(now) {
			clone := *req
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *mockPermissionRepository) UpdateIfStatus(req *permission.PermissionRequest, expectedStatus string) (bool, error) {
	stored, exists := m.requests[req.ID]
	if !exists || stored.Status != expectedStatus {
		return false, nil
	}
	clone := *req
	m.requests[req.ID] = &clone
	return true, nil
}

func (m *mockPermissionRepository) ListByUser(userID int64, limit, offset int) ([]*permission.PermissionRequest, int64, error) {
	if m.listError != nil {
		return nil, 0, m.listError
	}
	matches := make([]*permission.PermissionRequest, 0)
	for i := len(m.order) - 1; i >= 0; i-- {
		req := m.requests[m.order[i]]
		if req.UserID == userID {
			clone := *req
			matches = append(matches, &clone)
		}
	}
	return paginate(matches, limit, offset), int64(len(matches)), nil
}

func (m *mockPermissionRepository) ListByStatus(status string, limit, offset int) ([]*permission.PermissionRequest, int64, error) {
	if m.listError != nil {
		return nil, 0, m.listError
	}
	matches := make([]*permission.PermissionRequest, 0)
	for _, id := range m.order {
		req := m.requests[id]
		if req.Status == status {
			clone := *req
			matches = append(matches, &clone)
		}
	}
	return paginate(matches, limit, offset), int64(len(matches)), nil
}

func (m *mockPermissionRepository) ExpireStale(now time.Time) (int64, error) {
	var count int64
	for _, req := range m.requests {
		if req.Status == permission.StatusApproved && req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
			req.Status = permission.StatusExpired
			count++
		}
	}
	return count, nil
}

func paginate(reqs []*permission.PermissionRequest, limit, offset int) []*permission.PermissionRequest {
	if offset >= len(reqs) {
		return []*permission.PermissionRequest{}
	}
	end := offset + limit
	if end > len(reqs) {
		end = len(reqs)
	}
	return reqs[offset:end]
}

// Mock user directory
type mockUserDirectory struct {
	users map[int64]*user.User
}

func newMockUserDirectory() *mockUserDirectory {
	return &mockUserDirectory{users: make(map[int64]*user.User)}
}

func (m *mockUserDirectory) GetByID(userID int64) (*user.User, error) {
	u, exists := m.users[userID]
	if !exists {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUserDirectory) add(id int64, role string) {
	m.users[id] = &user.User{ID: id, Email: "u@mail.com", Name: "U", Role: role, Status: "active"}
}

// Mock pengadaan directory
type mockPengadaanDirectory struct {
	records map[int64]*permission.PengadaanSummary
}

func newMockPengadaanDirectory() *mockPengadaanDirectory {
	return &mockPengadaanDirectory{records: make(map[int64]*permission.PengadaanSummary)}
}

func (m *mockPengadaanDirectory) GetSummary(pengadaanID int64) (*permission.PengadaanSummary, error) {
	rec, exists := m.records[pengadaanID]
	if !exists {
		return nil, errors.New("pengadaan not found")
	}
	return rec, nil
}

var _ = Describe("PermissionService", func() {
	var (
		service    *permission.Service
		mockRepo   *mockPermissionRepository
		users      *mockUserDirectory
		pengadaans *mockPengadaanDirectory
	)

	const (
		requesterID = int64(10)
		adminID     = int64(99)
		recordID    = int64(42)
	)

	BeforeEach(func() {
		mockRepo = newMockPermissionRepository()
		users = newMockUserDirectory()
		pengadaans = newMockPengadaanDirectory()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = permission.NewService(mockRepo, users, pengadaans, nil, 24*time.Hour, logger)

		users.add(requesterID, "user")
		users.add(adminID, "admin")
		pengadaans.records[recordID] = &permission.PengadaanSummary{ID: recordID, Title: "Laptop engineering"}
	})

	requestPermission := func() *permission.PermissionRequest {
		req, err := service.RequestPermission(requesterID, recordID, permission.TypeEditForm, "typo in vendor name")
		Expect(err).ToNot(HaveOccurred())
		return req
	}

	Describe("RequestPermission", func() {
		It("should create a PENDING entry with the given reason", func() {
			req := requestPermission()

			Expect(req.Status).To(Equal(permission.StatusPending))
			Expect(req.Reason).To(Equal("typo in vendor name"))
			Expect(req.PermissionType).To(Equal(permission.TypeEditForm))
		})

		It("should default the permission type to EDIT_FORM", func() {
			req, err := service.RequestPermission(requesterID, recordID, "", "typo")

			Expect(err).ToNot(HaveOccurred())
			Expect(req.PermissionType).To(Equal(permission.TypeEditForm))
		})

		It("should reject an empty reason", func() {
			_, err := service.RequestPermission(requesterID, recordID, permission.TypeEditForm, "  ")

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeReasonRequired))
		})

		It("should reject a reason over the length cap", func() {
			long := make([]byte, permission.MaxReasonLength+1)
			for i := range long {
				long[i] = 'a'
			}

			_, err := service.RequestPermission(requesterID, recordID, permission.TypeEditForm, string(long))

			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown permission type", func() {
			_, err := service.RequestPermission(requesterID, recordID, "SUPER_USER", "reason")

			Expect(err).To(HaveOccurred())
		})

		It("should fail for an unknown user", func() {
			_, err := service.RequestPermission(12345, recordID, permission.TypeEditForm, "reason")

			Expect(err).To(Equal(internal.ErrUserNotFound))
		})

		It("should fail for an unknown pengadaan", func() {
			_, err := service.RequestPermission(requesterID, 777, permission.TypeEditForm, "reason")

			Expect(err).To(Equal(internal.ErrPengadaanNotFound))
		})

		It("should refuse a duplicate while one is still pending", func() {
			requestPermission()

			_, err := service.RequestPermission(requesterID, recordID, permission.TypeEditForm, "again")

			Expect(err).To(Equal(internal.ErrDuplicatePending))
		})

		It("should allow separate pending requests per permission type", func() {
			requestPermission()

			_, err := service.RequestPermission(requesterID, recordID, permission.TypeDeleteForm, "also delete")

			Expect(err).ToNot(HaveOccurred())
		})

		It("should refuse while an approved grant is still active", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RequestPermission(requesterID, recordID, permission.TypeEditForm, "more time")

			Expect(err).To(Equal(internal.ErrPermissionActive))
		})

		It("should allow a new request after a rejection", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusRejected, "not now")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RequestPermission(requesterID, recordID, permission.TypeEditForm, "please reconsider")

			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("RespondToRequest", func() {
		It("should approve and open a 24 hour grant window", func() {
			req := requestPermission()

			updated, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "ok")

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(permission.StatusApproved))
			Expect(updated.ExpiresAt).ToNot(BeNil())
			Expect(time.Until(*updated.ExpiresAt)).To(BeNumerically("~", 24*time.Hour, time.Minute))
		})

		It("should reject with a mandatory response", func() {
			req := requestPermission()

			updated, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusRejected, "record is frozen")

			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(permission.StatusRejected))
			Expect(*updated.AdminResponse).To(Equal("record is frozen"))
		})

		It("should refuse a rejection without a response", func() {
			req := requestPermission()

			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusRejected, "")

			Expect(err).To(HaveOccurred())
		})

		It("should refuse an unknown decision status", func() {
			req := requestPermission()

			_, err := service.RespondToRequest(req.ID, adminID, "maybe", "")

			Expect(err).To(HaveOccurred())
		})

		It("should refuse when the responder is not an admin", func() {
			req := requestPermission()

			_, err := service.RespondToRequest(req.ID, requesterID, permission.ResponseStatusApproved, "")

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeAdminRequired))
		})

		It("should surface Conflict when the request was already processed", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RespondToRequest(req.ID, adminID, permission.ResponseStatusRejected, "changed my mind")

			Expect(err).To(Equal(internal.ErrPermissionProcessed))
		})

		It("should fail for an unknown permission id", func() {
			_, err := service.RespondToRequest("PR-missing", adminID, permission.ResponseStatusApproved, "")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("HasEditPermission", func() {
		It("should be false before any approval", func() {
			requestPermission()

			granted, err := service.HasEditPermission(requesterID, recordID)

			Expect(err).ToNot(HaveOccurred())
			Expect(granted).To(BeFalse())
		})

		It("should be true inside the grant window", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			granted, err := service.HasEditPermission(requesterID, recordID)

			Expect(err).ToNot(HaveOccurred())
			Expect(granted).To(BeTrue())
		})

		It("should be false once the window passed even before the sweep", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			past := time.Now().Add(-time.Minute)
			mockRepo.requests[req.ID].ExpiresAt = &past

			granted, err := service.HasEditPermission(requesterID, recordID)

			Expect(err).ToNot(HaveOccurred())
			Expect(granted).To(BeFalse())
		})

		It("should not leak across records or users", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			granted, err := service.HasEditPermission(requesterID, recordID+1)
			Expect(err).ToNot(HaveOccurred())
			Expect(granted).To(BeFalse())

			granted, err = service.HasEditPermission(requesterID+1, recordID)
			Expect(err).ToNot(HaveOccurred())
			Expect(granted).To(BeFalse())
		})
	})

	Describe("RevokePermission", func() {
		It("should expire an active grant immediately", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			revoked, err := service.RevokePermission(req.ID, adminID, "record went to audit")

			Expect(err).ToNot(HaveOccurred())
			Expect(revoked.Status).To(Equal(permission.StatusExpired))

			granted, err := service.HasEditPermission(requesterID, recordID)
			Expect(err).ToNot(HaveOccurred())
			Expect(granted).To(BeFalse())
		})

		It("should require a reason", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RevokePermission(req.ID, adminID, " ")

			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeReasonRequired))
		})

		It("should refuse revoking a pending request", func() {
			req := requestPermission()

			_, err := service.RevokePermission(req.ID, adminID, "reason")

			Expect(err).To(Equal(internal.ErrPermissionNotActive))
		})

		It("should surface Conflict on a second revoke", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())
			_, err = service.RevokePermission(req.ID, adminID, "first")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RevokePermission(req.ID, adminID, "second")

			Expect(err).To(Equal(internal.ErrPermissionNotActive))
		})

		It("should refuse when the caller is not an admin", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RevokePermission(req.ID, requesterID, "reason")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CleanupExpiredPermissions", func() {
		It("should expire only stale approved grants", func() {
			stale := requestPermission()
			_, err := service.RespondToRequest(stale.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())
			past := time.Now().Add(-time.Minute)
			mockRepo.requests[stale.ID].ExpiresAt = &past

			fresh, err := service.RequestPermission(requesterID, recordID, permission.TypeDeleteForm, "cleanup test")
			Expect(err).ToNot(HaveOccurred())
			_, err = service.RespondToRequest(fresh.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			count, err := service.CleanupExpiredPermissions()

			Expect(err).ToNot(HaveOccurred())
			Expect(count).To(Equal(int64(1)))
			Expect(mockRepo.requests[stale.ID].Status).To(Equal(permission.StatusExpired))
			Expect(mockRepo.requests[fresh.ID].Status).To(Equal(permission.StatusApproved))
		})

		It("should be idempotent", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())
			past := time.Now().Add(-time.Minute)
			mockRepo.requests[req.ID].ExpiresAt = &past

			first, err := service.CleanupExpiredPermissions()
			Expect(err).ToNot(HaveOccurred())
			Expect(first).To(Equal(int64(1)))

			second, err := service.CleanupExpiredPermissions()
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(BeZero())
		})

		It("should allow a new request once the old grant expired", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())
			past := time.Now().Add(-time.Minute)
			mockRepo.requests[req.ID].ExpiresAt = &past

			_, err = service.CleanupExpiredPermissions()
			Expect(err).ToNot(HaveOccurred())

			_, err = service.RequestPermission(requesterID, recordID, permission.TypeEditForm, "need another window")
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("BulkRespond", func() {
		It("should process entries independently and report per-item failures", func() {
			first := requestPermission()
			second, err := service.RequestPermission(requesterID, recordID, permission.TypeDeleteForm, "bulk")
			Expect(err).ToNot(HaveOccurred())

			result, err := service.BulkRespond(
				[]string{first.ID, second.ID, "PR-missing"},
				adminID, permission.ResponseStatusApproved, "batch ok")

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Successful).To(Equal(2))
			Expect(result.Failed).To(Equal(1))
			Expect(result.Errors).To(HaveLen(1))
			Expect(result.Errors[0].PermissionID).To(Equal("PR-missing"))
		})

		It("should refuse an empty id list", func() {
			_, err := service.BulkRespond(nil, adminID, permission.ResponseStatusApproved, "")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListUserRequests", func() {
		It("should return the caller's entries newest first with totals", func() {
			requestPermission()
			_, err := service.RequestPermission(requesterID, recordID, permission.TypeDeleteForm, "second")
			Expect(err).ToNot(HaveOccurred())

			resp, err := service.ListUserRequests(requesterID, 1, 10)

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Total).To(Equal(int64(2)))
			Expect(resp.Permissions).To(HaveLen(2))
			Expect(resp.Permissions[0].PermissionType).To(Equal(permission.TypeDeleteForm))
		})

		It("should normalize out-of-range pagination", func() {
			requestPermission()

			resp, err := service.ListUserRequests(requesterID, 0, 500)

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Page).To(Equal(1))
			Expect(resp.Limit).To(Equal(20))
		})
	})

	Describe("ListPendingRequests", func() {
		It("should enrich entries with requester and record summaries", func() {
			requestPermission()

			resp, err := service.ListPendingRequests(1, 10)

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Permissions).To(HaveLen(1))
			Expect(resp.Permissions[0].Requester).ToNot(BeNil())
			Expect(resp.Permissions[0].Requester.ID).To(Equal(requesterID))
			Expect(resp.Permissions[0].Pengadaan).ToNot(BeNil())
			Expect(resp.Permissions[0].Pengadaan.Title).To(Equal("Laptop engineering"))
		})

		It("should exclude processed entries", func() {
			req := requestPermission()
			_, err := service.RespondToRequest(req.ID, adminID, permission.ResponseStatusApproved, "")
			Expect(err).ToNot(HaveOccurred())

			resp, err := service.ListPendingRequests(1, 10)

			Expect(err).ToNot(HaveOccurred())
			Expect(resp.Permissions).To(BeEmpty())
			Expect(resp.Total).To(BeZero())
		})
	})
})
