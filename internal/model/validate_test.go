package model

import (
	"strings"
	"testing"
)

func validClientInput() ClientInput {
	return ClientInput{
		Name:    "John Doe",
		Email:   "john.doe@example.com",
		Phone:   "+1234567890",
		Company: "ABC Corp",
		Status:  ClientStatusActive,
	}
}

func validDealInput() DealInput {
	return DealInput{
		Title:             "Website Redesign",
		Value:             5000,
		Stage:             DealStageProposal,
		ClientID:          "1",
		ExpectedCloseDate: "2024-03-15",
	}
}

func TestValidateClientInput_Valid(t *testing.T) {
	if details := ValidateClientInput(validClientInput()); len(details) != 0 {
		t.Errorf("expected no validation errors, got %v", details)
	}
}

func TestValidateClientInput_OptionalFieldsMayBeEmpty(t *testing.T) {
	in := validClientInput()
	in.Phone = ""
	in.Company = ""
	if details := ValidateClientInput(in); len(details) != 0 {
		t.Errorf("phone and company should be optional, got %v", details)
	}
}

func TestValidateClientInput_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClientInput)
		wantSub string
	}{
		{"missing name", func(in *ClientInput) { in.Name = "" }, "name is required"},
		{"name too long", func(in *ClientInput) { in.Name = strings.Repeat("a", 101) }, "at most 100"},
		{"missing email", func(in *ClientInput) { in.Email = "" }, "email is required"},
		{"malformed email", func(in *ClientInput) { in.Email = "not-an-email" }, "valid email"},
		{"unknown status", func(in *ClientInput) { in.Status = "archived" }, "status must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validClientInput()
			tt.mutate(&in)
			details := ValidateClientInput(in)
			if len(details) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			if !containsSubstring(details, tt.wantSub) {
				t.Errorf("details = %v, want message containing %q", details, tt.wantSub)
			}
		})
	}
}

func TestValidateDealInput_Valid(t *testing.T) {
	if details := ValidateDealInput(validDealInput()); len(details) != 0 {
		t.Errorf("expected no validation errors, got %v", details)
	}
}

func TestValidateDealInput_RFC3339DateAccepted(t *testing.T) {
	in := validDealInput()
	in.ExpectedCloseDate = "2024-03-15T00:00:00Z"
	if details := ValidateDealInput(in); len(details) != 0 {
		t.Errorf("RFC 3339 date should be accepted, got %v", details)
	}
}

func TestValidateDealInput_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*DealInput)
		wantSub string
	}{
		{"missing title", func(in *DealInput) { in.Title = "" }, "title is required"},
		{"title too long", func(in *DealInput) { in.Title = strings.Repeat("a", 201) }, "at most 200"},
		{"negative value", func(in *DealInput) { in.Value = -1 }, "greater than or equal to 0"},
		{"unknown stage", func(in *DealInput) { in.Stage = "won" }, "stage must be one of"},
		{"missing clientId", func(in *DealInput) { in.ClientID = "" }, "clientId is required"},
		{"missing date", func(in *DealInput) { in.ExpectedCloseDate = "" }, "expectedCloseDate is required"},
		{"malformed date", func(in *DealInput) { in.ExpectedCloseDate = "15/03/2024" }, "valid date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validDealInput()
			tt.mutate(&in)
			details := ValidateDealInput(in)
			if len(details) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			if !containsSubstring(details, tt.wantSub) {
				t.Errorf("details = %v, want message containing %q", details, tt.wantSub)
			}
		})
	}
}

func TestValidateDealInput_ZeroValueAllowed(t *testing.T) {
	in := validDealInput()
	in.Value = 0
	if details := ValidateDealInput(in); len(details) != 0 {
		t.Errorf("zero value should be allowed, got %v", details)
	}
}

func TestValidateEmailSendInput(t *testing.T) {
	valid := EmailSendInput{
		To:      "client@example.com",
		Subject: "Hello",
		HTML:    "<p>Hi</p>",
	}

	if details := ValidateEmailSendInput(valid); len(details) != 0 {
		t.Errorf("expected no validation errors, got %v", details)
	}

	tests := []struct {
		name    string
		mutate  func(*EmailSendInput)
		wantSub string
	}{
		{"missing to", func(in *EmailSendInput) { in.To = "" }, "to is required"},
		{"malformed to", func(in *EmailSendInput) { in.To = "nope" }, "valid email"},
		{"missing subject", func(in *EmailSendInput) { in.Subject = "" }, "subject is required"},
		{"subject too long", func(in *EmailSendInput) { in.Subject = strings.Repeat("s", 201) }, "at most 200"},
		{"missing html", func(in *EmailSendInput) { in.HTML = "" }, "html is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			details := ValidateEmailSendInput(in)
			if len(details) == 0 {
				t.Fatal("expected validation errors, got none")
			}
			if !containsSubstring(details, tt.wantSub) {
				t.Errorf("details = %v, want message containing %q", details, tt.wantSub)
			}
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewUnauthorizedError()
	got := err.Error()
	if !strings.Contains(got, ErrCodeUnauthorized) {
		t.Errorf("Error() = %q, want it to contain %q", got, ErrCodeUnauthorized)
	}
}

func containsSubstring(details []string, sub string) bool {
	for _, d := range details {
		if strings.Contains(d, sub) {
			return true
		}
	}
	return false
}
