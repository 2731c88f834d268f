package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medibook/booking/internal/domain/directory"
	"github.com/medibook/booking/internal/domain/identity"
)

// Demo accounts present in every fresh store. Doctor accounts reuse the
// catalog ids.
var (
	demoPatientID = uuid.MustParse("9a7e0000-0000-4000-8000-000000000001")
	demoAdminID   = uuid.MustParse("ad000000-0000-4000-8000-000000000001")
)

func demoUsers(catalog []directory.Doctor) []*identity.User {
	users := []*identity.User{
		{ID: demoPatientID, Role: identity.RolePatient, DisplayName: "John Doe", Email: "john.doe@example.com"},
		{ID: demoAdminID, Role: identity.RoleAdmin, DisplayName: "Clinic Admin", Email: "admin@example.com"},
	}
	for _, d := range catalog {
		users = append(users, &identity.User{
			ID:          d.ID,
			Role:        identity.RoleDoctor,
			DisplayName: d.Name,
			Email:       strings.ToLower(strings.ReplaceAll(d.Name, " ", ".")) + "@example.com",
		})
	}
	return users
}

func seedUsers(ctx context.Context, svc *identity.Service, catalog []directory.Doctor) error {
	for _, u := range demoUsers(catalog) {
		if existing, err := svc.GetUser(ctx, u.ID); err == nil && existing != nil {
			continue
		}
		if err := svc.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.DisplayName, err)
		}
	}
	return nil
}
