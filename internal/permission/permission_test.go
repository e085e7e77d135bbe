package permission_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/noeralma/procure-flow-organize-sub000/internal"
	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
)

func TestPermission(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Permission Module Suite")
}

var _ = Describe("PermissionRequest", func() {
	var req *permission.PermissionRequest

	BeforeEach(func() {
		req = permission.NewRequest(10, 42, permission.TypeEditForm, "need to fix vendor name")
	})

	Describe("NewRequest", func() {
		It("should start as PENDING with no admin fields", func() {
			Expect(req.ID).To(HavePrefix("PR-"))
			Expect(req.Status).To(Equal(permission.StatusPending))
			Expect(req.UserID).To(Equal(int64(10)))
			Expect(req.PengadaanID).To(Equal(int64(42)))
			Expect(req.AdminID).To(BeNil())
			Expect(req.AdminResponse).To(BeNil())
			Expect(req.RespondedAt).To(BeNil())
			Expect(req.ExpiresAt).To(BeNil())
		})

		It("should assign a unique identifier per request", func() {
			other := permission.NewRequest(10, 42, permission.TypeEditForm, "again")
			Expect(other.ID).ToNot(Equal(req.ID))
		})
	})

	Describe("Approve", func() {
		It("should transition to APPROVED and open the grant window", func() {
			note := "go ahead"
			err := req.Approve(99, &note, 24*time.Hour)

			Expect(err).ToNot(HaveOccurred())
			Expect(req.Status).To(Equal(permission.StatusApproved))
			Expect(req.AdminID).ToNot(BeNil())
			Expect(*req.AdminID).To(Equal(int64(99)))
			Expect(req.RespondedAt).ToNot(BeNil())
			Expect(req.ExpiresAt).ToNot(BeNil())
			Expect(req.ExpiresAt.Sub(*req.RespondedAt)).To(BeNumerically("~", 24*time.Hour, time.Second))
		})

		It("should allow approval without a note", func() {
			err := req.Approve(99, nil, 24*time.Hour)

			Expect(err).ToNot(HaveOccurred())
			Expect(req.AdminResponse).To(BeNil())
		})

		It("should fall back to the default duration when none is given", func() {
			err := req.Approve(99, nil, 0)

			Expect(err).ToNot(HaveOccurred())
			Expect(req.ExpiresAt.Sub(*req.RespondedAt)).To(BeNumerically("~", permission.DefaultGrantDuration, time.Second))
		})

		It("should refuse a second approval", func() {
			Expect(req.Approve(99, nil, time.Hour)).To(Succeed())

			err := req.Approve(100, nil, time.Hour)

			Expect(err).To(Equal(internal.ErrPermissionProcessed))
			Expect(*req.AdminID).To(Equal(int64(99)))
		})

		It("should refuse approving a rejected request", func() {
			Expect(req.Reject(99, "no")).To(Succeed())

			err := req.Approve(100, nil, time.Hour)

			Expect(err).To(Equal(internal.ErrPermissionProcessed))
			Expect(req.Status).To(Equal(permission.StatusRejected))
		})
	})

	Describe("Reject", func() {
		It("should transition to REJECTED and record the response", func() {
			err := req.Reject(99, "record is under audit")

			Expect(err).ToNot(HaveOccurred())
			Expect(req.Status).To(Equal(permission.StatusRejected))
			Expect(*req.AdminResponse).To(Equal("record is under audit"))
			Expect(req.ExpiresAt).To(BeNil())
		})

		It("should require a non-empty response", func() {
			err := req.Reject(99, "   ")

			Expect(err).To(HaveOccurred())
			Expect(req.Status).To(Equal(permission.StatusPending))
		})

		It("should refuse rejecting an already approved request", func() {
			Expect(req.Approve(99, nil, time.Hour)).To(Succeed())

			err := req.Reject(100, "too late")

			Expect(err).To(Equal(internal.ErrPermissionProcessed))
			Expect(req.Status).To(Equal(permission.StatusApproved))
		})
	})

	Describe("Revoke", func() {
		It("should force an active grant to EXPIRED immediately", func() {
			Expect(req.Approve(99, nil, 24*time.Hour)).To(Succeed())

			err := req.Revoke(99, "record submitted to finance")

			Expect(err).ToNot(HaveOccurred())
			Expect(req.Status).To(Equal(permission.StatusExpired))
			Expect(*req.AdminResponse).To(Equal("Revoked: record submitted to finance"))
			Expect(req.IsActive()).To(BeFalse())
		})

		It("should refuse revoking a pending request", func() {
			err := req.Revoke(99, "nope")

			Expect(err).To(Equal(internal.ErrPermissionNotActive))
		})

		It("should refuse revoking twice", func() {
			Expect(req.Approve(99, nil, 24*time.Hour)).To(Succeed())
			Expect(req.Revoke(99, "first")).To(Succeed())

			err := req.Revoke(99, "second")

			Expect(err).To(Equal(internal.ErrPermissionNotActive))
		})

		It("should refuse revoking a grant that already lapsed", func() {
			Expect(req.Approve(99, nil, 24*time.Hour)).To(Succeed())
			past := time.Now().Add(-time.Minute)
			req.ExpiresAt = &past

			err := req.Revoke(99, "too late")

			Expect(err).To(Equal(internal.ErrPermissionNotActive))
		})
	})

	Describe("IsActive and IsExpired", func() {
		It("should not be active while pending", func() {
			Expect(req.IsActive()).To(BeFalse())
			Expect(req.IsExpired()).To(BeFalse())
		})

		It("should be active inside the grant window", func() {
			Expect(req.Approve(99, nil, 24*time.Hour)).To(Succeed())

			Expect(req.IsActive()).To(BeTrue())
			Expect(req.IsExpired()).To(BeFalse())
		})

		It("should stop granting once the window passes even if the sweep has not run", func() {
			Expect(req.Approve(99, nil, 24*time.Hour)).To(Succeed())
			past := time.Now().Add(-time.Second)
			req.ExpiresAt = &past

			Expect(req.IsExpired()).To(BeTrue())
			Expect(req.IsActive()).To(BeFalse())
			// the row still says APPROVED until the sweep rewrites it
			Expect(req.Status).To(Equal(permission.StatusApproved))
		})
	})

	Describe("ToResponse", func() {
		It("should expose the computed expiry flag", func() {
			Expect(req.Approve(99, nil, 24*time.Hour)).To(Succeed())
			past := time.Now().Add(-time.Second)
			req.ExpiresAt = &past

			resp := req.ToResponse()

			Expect(resp.ID).To(Equal(req.ID))
			Expect(resp.Status).To(Equal(permission.StatusApproved))
			Expect(resp.IsExpired).To(BeTrue())
		})
	})
})
