// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/store"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

// ErrInvalidCredentials is returned by Authenticate for unknown users and wrong passwords
var ErrInvalidCredentials = errors.New("invalid credentials")

// PasswordCost is the bcrypt cost for hashing passwords
var PasswordCost = bcrypt.DefaultCost

// Account is a user account with a clear text password, as provisioned at startup
type Account struct {
	Username string
	Role     ticket.Role
	Password string
}

// ParseAccounts parses a comma separated list of accounts in the form
// username:ROLE:password, e.g. "noobMaster:CLIENT:secret,agent007:AGENT:secret".
// Passwords may contain colons.
func ParseAccounts(list string) ([]Account, error) {
	var accounts []Account
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 3)
		if len(parts) != 3 || parts[2] == "" {
			return nil, fmt.Errorf("account '%s' is not of the form username:ROLE:password", parts[0])
		}
		username := parts[0]
		if len(username) < ticket.UsernameMinLength || len(username) > ticket.UsernameMaxLength {
			return nil, fmt.Errorf("username %s must be between %d and %d characters", username,
				ticket.UsernameMinLength, ticket.UsernameMaxLength)
		}
		role, err := ticket.ParseRole(parts[1])
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", username, err)
		}
		accounts = append(accounts, Account{Username: username, Role: role, Password: parts[2]})
	}
	return accounts, nil
}

// EnsureAccounts creates the specified accounts if they do not exist yet. Existing accounts are
// left untouched.
func EnsureAccounts(ctx context.Context, users store.Users, accounts ...Account) error {
	rlog := logger.FromContext(ctx)
	for _, account := range accounts {
		hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), PasswordCost)
		if err != nil {
			return fmt.Errorf("cannot hash password of %s: %w", account.Username, err)
		}
		err = users.CreateUser(ctx, store.User{
			Username:     account.Username,
			Role:         account.Role,
			PasswordHash: string(hash),
		})
		if errors.Is(err, store.ErrDuplicate) {
			rlog.Debugf("account %s already exists", account.Username)
			continue
		}
		if err != nil {
			return err
		}
		rlog.Infof("created %s account %s", account.Role, account.Username)
	}
	return nil
}

// Authenticate checks the password of a user and returns the user
func Authenticate(ctx context.Context, users store.Users, username, password string) (store.User, error) {
	user, err := users.FindUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	return user, nil
}
