package permission_test

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/noeralma/procure-flow-organize-sub000/internal/permission"
)

type mockGrantChecker struct {
	editGranted   bool
	deleteGranted bool
	lookupError   error
	editCalls     int
	deleteCalls   int
}

func (m *mockGrantChecker) HasEditPermission(userID, pengadaanID int64) (bool, error) {
	m.editCalls++
	if m.lookupError != nil {
		return false, m.lookupError
	}
	return m.editGranted, nil
}

func (m *mockGrantChecker) HasDeletePermission(userID, pengadaanID int64) (bool, error) {
	m.deleteCalls++
	if m.lookupError != nil {
		return false, m.lookupError
	}
	return m.deleteGranted, nil
}

var _ = Describe("Gate", func() {
	var (
		gate   *permission.Gate
		grants *mockGrantChecker
	)

	BeforeEach(func() {
		grants = &mockGrantChecker{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		gate = permission.NewGate(grants, logger)
	})

	record := func(editable, submitted bool, createdBy int64) permission.Record {
		return permission.Record{ID: 7, IsEditable: editable, CreatedBy: createdBy, IsSubmitted: submitted}
	}

	Describe("CanEdit", func() {
		Context("when the actor is an admin", func() {
			It("should allow without consulting the ledger", func() {
				ok, err := gate.CanEdit(1, "admin", record(false, true, 2))

				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(grants.editCalls).To(BeZero())
			})
		})

		Context("when the record is locked", func() {
			It("should deny even the owner", func() {
				ok, err := gate.CanEdit(2, "user", record(false, false, 2))

				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(grants.editCalls).To(BeZero())
			})
		})

		Context("when the owner edits an unsubmitted draft", func() {
			It("should allow without consulting the ledger", func() {
				ok, err := gate.CanEdit(2, "user", record(true, false, 2))

				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(grants.editCalls).To(BeZero())
			})
		})

		Context("when the owner edits a submitted record", func() {
			It("should fall through to a grant lookup", func() {
				grants.editGranted = true

				ok, err := gate.CanEdit(2, "user", record(true, true, 2))

				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(BeTrue())
				Expect(grants.editCalls).To(Equal(1))
			})
		})

		Context("when a non-owner has no grant", func() {
			It("should deny", func() {
				ok, err := gate.CanEdit(3, "user", record(true, false, 2))

				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(BeFalse())
				Expect(grants.editCalls).To(Equal(1))
			})
		})

		Context("when a non-owner holds an active grant", func() {
			It("should allow", func() {
				grants.editGranted = true

				ok, err := gate.CanEdit(3, "user", record(true, true, 2))

				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(BeTrue())
			})
		})

		Context("when the grant lookup fails", func() {
			It("should deny and propagate the error", func() {
				grants.lookupError = errors.New("db down")

				ok, err := gate.CanEdit(3, "user", record(true, true, 2))

				Expect(err).To(HaveOccurred())
				Expect(ok).To(BeFalse())
			})
		})
	})

	Describe("decision matrix", func() {
		type gateCase struct {
			admin     bool
			editable  bool
			owner     bool
			submitted bool
			granted   bool
		}

		verdict := func(c gateCase) bool {
			if c.admin {
				return true
			}
			if !c.editable {
				return false
			}
			if c.owner && !c.submitted {
				return true
			}
			return c.granted
		}

		var cases []gateCase
		for i := 0; i < 32; i++ {
			cases = append(cases, gateCase{
				admin:     i&1 != 0,
				editable:  i&2 != 0,
				owner:     i&4 != 0,
				submitted: i&8 != 0,
				granted:   i&16 != 0,
			})
		}

		for _, c := range cases {
			c := c
			want := verdict(c)

			It(fmt.Sprintf("admin=%t editable=%t owner=%t submitted=%t granted=%t yields %t",
				c.admin, c.editable, c.owner, c.submitted, c.granted, want), func() {
				grants.editGranted = c.granted
				grants.deleteGranted = c.granted

				actorID := int64(3)
				role := "user"
				if c.admin {
					role = "admin"
				}
				ownerID := int64(2)
				if c.owner {
					ownerID = actorID
				}

				rec := record(c.editable, c.submitted, ownerID)

				ok, err := gate.CanEdit(actorID, role, rec)
				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(Equal(want))

				ok, err = gate.CanDelete(actorID, role, rec)
				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(Equal(want))
			})
		}
	})

	Describe("CanDelete", func() {
		It("should allow admins unconditionally", func() {
			ok, err := gate.CanDelete(1, "admin", record(false, true, 2))

			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should deny on locked records", func() {
			ok, err := gate.CanDelete(2, "user", record(false, false, 2))

			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("should allow owners of unsubmitted drafts", func() {
			ok, err := gate.CanDelete(2, "user", record(true, false, 2))

			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeTrue())
		})

		It("should consult DELETE_FORM grants, not EDIT_FORM", func() {
			grants.editGranted = true
			grants.deleteGranted = false

			ok, err := gate.CanDelete(3, "user", record(true, true, 2))

			Expect(err).ToNot(HaveOccurred())
			Expect(ok).To(BeFalse())
			Expect(grants.deleteCalls).To(Equal(1))
			Expect(grants.editCalls).To(BeZero())
		})
	})
})
