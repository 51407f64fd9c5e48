package services

import (
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (s *ServiceSuite) newAuthService() *AuthService {
	svc := NewAuthService(s.store, "test-secret")
	svc.now = s.fixedClock
	return svc
}

func (s *ServiceSuite) TestRegister_FounderCreatesOrganization() {
	svc := s.newAuthService()

	user, err := svc.Register(RegisterInput{
		Email: "Founder@Example.com", Password: "long-enough", Name: "Founder", OrganizationName: "Acme Build",
	})
	s.Require().NoError(err)
	s.Equal(models.RoleExecutive, user.Role)
	s.Equal("founder@example.com", user.Email)
	s.NotEqual(s.org.ID, user.OrganizationID)

	_, err = svc.Register(RegisterInput{
		Email: "founder@example.com", Password: "long-enough", Name: "Again", OrganizationName: "Other",
	})
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *ServiceSuite) TestRegister_Invitee() {
	svc := s.newAuthService()

	user, err := svc.Register(RegisterInput{
		Email: "crew@example.com", Password: "long-enough", Name: "Crew", InviteCode: s.org.InviteCode,
	})
	s.Require().NoError(err)
	s.Equal(s.org.ID, user.OrganizationID)
	s.Equal(models.RoleFieldWorker, user.Role)

	_, err = svc.Register(RegisterInput{
		Email: "boss@example.com", Password: "long-enough", Name: "Boss", Role: models.RoleExecutive, InviteCode: s.org.InviteCode,
	})
	s.ErrorIs(err, ErrValidation)

	_, err = svc.Register(RegisterInput{
		Email: "lost@example.com", Password: "long-enough", Name: "Lost", InviteCode: "NOPE-NOPE-NOPE",
	})
	s.ErrorIs(err, ErrInvalidInviteCode)
}

func (s *ServiceSuite) TestRegister_Validation() {
	svc := s.newAuthService()

	cases := []RegisterInput{
		{Email: "bad", Password: "long-enough", Name: "x", OrganizationName: "o"},
		{Email: "a@example.com", Password: "short", Name: "x", OrganizationName: "o"},
		{Email: "a@example.com", Password: "long-enough", Name: " ", OrganizationName: "o"},
		{Email: "a@example.com", Password: "long-enough", Name: "x"},
		{Email: "a@example.com", Password: "long-enough", Name: "x", OrganizationName: "o", Role: models.RoleForeman},
	}
	for _, input := range cases {
		_, err := svc.Register(input)
		s.ErrorIs(err, ErrValidation, "%+v", input)
	}
}

func (s *ServiceSuite) TestLogin() {
	svc := s.newAuthService()

	user, err := svc.Login(LoginInput{Email: s.worker.Email, Password: testutil.Password})
	s.Require().NoError(err)
	s.Equal(s.worker.ID, user.ID)

	_, err = svc.Login(LoginInput{Email: s.worker.Email, Password: "wrong-password"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = svc.Login(LoginInput{Email: "nobody@example.com", Password: testutil.Password})
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestDeviceToken_RoundTrip() {
	svc := s.newAuthService()

	token, expiresAt, err := svc.IssueDeviceToken(s.worker)
	s.Require().NoError(err)
	s.True(expiresAt.After(s.fixedTime))

	id, err := svc.ParseDeviceToken(token)
	s.Require().NoError(err)
	s.Equal(s.worker.ID, id)

	other := NewAuthService(s.store, "different-secret")
	other.now = s.fixedClock
	_, err = other.ParseDeviceToken(token)
	s.ErrorIs(err, ErrInvalidToken)

	svc.now = func() time.Time { return expiresAt.Add(time.Minute) }
	_, err = svc.ParseDeviceToken(token)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestUpdateProfile_PasswordNeedsCurrent() {
	svc := s.newAuthService()
	name := "Renamed"

	_, err := svc.UpdateProfile(s.worker, UpdateProfileInput{CurrentPassword: "wrong", NewPassword: "brand-new-pass"})
	s.ErrorIs(err, ErrInvalidCredentials)

	updated, err := svc.UpdateProfile(s.worker, UpdateProfileInput{
		Name: &name, CurrentPassword: testutil.Password, NewPassword: "brand-new-pass",
	})
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Name)

	_, err = svc.Login(LoginInput{Email: s.worker.Email, Password: "brand-new-pass"})
	s.NoError(err)
}
