package portal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/relabs-tech/ticketportal/core/ticket"
)

// form validation errors, their text is shown to the user
var (
	ErrTitleLength       = fmt.Errorf("Title should be between %d to %d characters.", ticket.TitleMinLength, ticket.TitleMaxLength)
	ErrDescriptionLength = fmt.Errorf("Description should be less than %d characters.", ticket.DescriptionMaxLength)
	ErrMissingUsername   = errors.New("Username is required.")
	ErrMissingPassword   = errors.New("Password is required.")
)

// SignInForm is the content of the sign in form
type SignInForm struct {
	Username string
	Password string
	// Error is the message of the last failed submit
	Error string
}

// SignInFormFromValues reads the form from posted values
func SignInFormFromValues(values url.Values) SignInForm {
	return SignInForm{
		Username: strings.TrimSpace(values.Get("username")),
		Password: values.Get("password"),
	}
}

// Validate checks that both fields are filled in
func (f SignInForm) Validate() error {
	if f.Username == "" {
		return ErrMissingUsername
	}
	if f.Password == "" {
		return ErrMissingPassword
	}
	return nil
}

// CreateTicketForm is the content of the create ticket form
type CreateTicketForm struct {
	Title       string
	Description string
	Category    ticket.Category
	// Error is the message of the last failed submit
	Error string
}

// NewCreateTicketForm returns an empty form with the default category
func NewCreateTicketForm() CreateTicketForm {
	return CreateTicketForm{Category: ticket.DefaultCategory}
}

// CreateTicketFormFromValues reads the form from posted values. A missing
// category falls back to the default.
func CreateTicketFormFromValues(values url.Values) CreateTicketForm {
	f := NewCreateTicketForm()
	f.Title = values.Get("title")
	f.Description = values.Get("description")
	if c := values.Get("category"); c != "" {
		f.Category = ticket.Category(c)
	}
	return f
}

// Validate checks title and description length and the category
func (f CreateTicketForm) Validate() error {
	if n := utf8.RuneCountInString(f.Title); n < ticket.TitleMinLength || n > ticket.TitleMaxLength {
		return ErrTitleLength
	}
	if utf8.RuneCountInString(f.Description) > ticket.DescriptionMaxLength {
		return ErrDescriptionLength
	}
	if _, err := ticket.ParseCategory(string(f.Category)); err != nil {
		return err
	}
	return nil
}

// Input returns the request body for the service
func (f CreateTicketForm) Input() ticket.CreateInput {
	return ticket.CreateInput{Title: f.Title, Description: f.Description, Category: f.Category}
}

// CategoryOptions returns the category choices of the form
func (f CreateTicketForm) CategoryOptions() []Option {
	options := []Option{}
	for _, c := range ticket.Categories() {
		options = append(options, Option{Value: string(c), Label: c.Label()})
	}
	return options
}
