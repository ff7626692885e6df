package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/relabs-tech/ticketportal/core/csql"
	"github.com/relabs-tech/ticketportal/core/logger"
	"github.com/relabs-tech/ticketportal/core/ticket"
)

// postgres error code for unique_violation
const uniqueViolation = "23505"

// Postgres is a store in a postgres database schema
type Postgres struct {
	db *csql.DB

	findUserQuery     string
	createUserQuery   string
	listTicketsQuery  string
	findTicketQuery   string
	createTicketQuery string
	updateTicketQuery string
	deleteTicketQuery string
}

const ticketColumns = "id,title,description,status,category,priority,author,agent,created_at,updated_at"

// NewPostgres creates the user and ticket tables in the database schema if they do not
// exist yet and returns the store
func NewPostgres(db *csql.DB) (*Postgres, error) {
	schema := db.Schema
	rlog := logger.Default()
	rlog.Debugln("create tables user and ticket in schema", schema)
	_, err := db.Exec(`CREATE table IF NOT EXISTS ` + schema + `."user"
(username varchar NOT NULL,
role varchar NOT NULL,
password_hash varchar NOT NULL,
created_at timestamp NOT NULL DEFAULT now(),
PRIMARY KEY(username)
);
CREATE table IF NOT EXISTS ` + schema + `.ticket
(id bigserial NOT NULL,
title varchar(100) NOT NULL,
description varchar(1000) NOT NULL DEFAULT '',
status varchar NOT NULL,
category varchar NOT NULL,
priority varchar NOT NULL,
author varchar NOT NULL REFERENCES ` + schema + `."user"(username),
agent varchar REFERENCES ` + schema + `."user"(username),
created_at timestamp NOT NULL,
updated_at timestamp NOT NULL,
PRIMARY KEY(id)
);`)
	if err != nil {
		return nil, fmt.Errorf("cannot create tables: %w", err)
	}

	return &Postgres{
		db:              db,
		findUserQuery:   `SELECT username,role,password_hash FROM ` + schema + `."user" WHERE username=$1;`,
		createUserQuery: `INSERT INTO ` + schema + `."user"(username,role,password_hash) VALUES($1,$2,$3);`,
		listTicketsQuery: `SELECT ` + ticketColumns + ` FROM ` + schema + `.ticket ORDER BY id;`,
		findTicketQuery:  `SELECT ` + ticketColumns + ` FROM ` + schema + `.ticket WHERE id=$1;`,
		createTicketQuery: `INSERT INTO ` + schema + `.ticket(title,description,status,category,priority,author,agent,created_at,updated_at)
VALUES($1,$2,$3,$4,$5,$6,$7,timezone('utc', now()),timezone('utc', now())) RETURNING ` + ticketColumns + `;`,
		updateTicketQuery: `UPDATE ` + schema + `.ticket SET title=$2,description=$3,status=$4,category=$5,priority=$6,agent=$7,updated_at=timezone('utc', now())
WHERE id=$1 RETURNING ` + ticketColumns + `;`,
		deleteTicketQuery: `DELETE FROM ` + schema + `.ticket WHERE id=$1 RETURNING ` + ticketColumns + `;`,
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTicket(row rowScanner) (ticket.Ticket, error) {
	var (
		t     ticket.Ticket
		agent *string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Category, &t.Priority,
		&t.Author, &agent, &t.CreatedAt, &t.UpdatedAt)
	if agent != nil {
		t.Agent = *agent
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FindUser implements Users
func (p *Postgres) FindUser(ctx context.Context, username string) (User, error) {
	var user User
	err := p.db.QueryRowContext(ctx, p.findUserQuery, username).Scan(&user.Username, &user.Role, &user.PasswordHash)
	if err == csql.ErrNoRows {
		return User{}, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("cannot find user %s: %w", username, err)
	}
	return user, nil
}

// CreateUser implements Users
func (p *Postgres) CreateUser(ctx context.Context, user User) error {
	_, err := p.db.ExecContext(ctx, p.createUserQuery, user.Username, user.Role, user.PasswordHash)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("cannot create user %s: %w", user.Username, err)
	}
	return nil
}

// ListTickets implements Tickets
func (p *Postgres) ListTickets(ctx context.Context) ([]ticket.Ticket, error) {
	rows, err := p.db.QueryContext(ctx, p.listTicketsQuery)
	if err != nil {
		return nil, fmt.Errorf("cannot list tickets: %w", err)
	}
	defer rows.Close()
	tickets := []ticket.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("cannot scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// FindTicket implements Tickets
func (p *Postgres) FindTicket(ctx context.Context, id int64) (ticket.Ticket, error) {
	return p.queryTicket(ctx, id, p.findTicketQuery, id)
}

// CreateTicket implements Tickets
func (p *Postgres) CreateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	created, err := scanTicket(p.db.QueryRowContext(ctx, p.createTicketQuery,
		t.Title, t.Description, t.Status, t.Category, t.Priority, t.Author, nullable(t.Agent)))
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("cannot create ticket: %w", err)
	}
	return created, nil
}

// UpdateTicket implements Tickets
func (p *Postgres) UpdateTicket(ctx context.Context, t ticket.Ticket) (ticket.Ticket, error) {
	return p.queryTicket(ctx, t.ID, p.updateTicketQuery,
		t.ID, t.Title, t.Description, t.Status, t.Category, t.Priority, nullable(t.Agent))
}

// DeleteTicket implements Tickets
func (p *Postgres) DeleteTicket(ctx context.Context, id int64) (ticket.Ticket, error) {
	return p.queryTicket(ctx, id, p.deleteTicketQuery, id)
}

func (p *Postgres) queryTicket(ctx context.Context, id int64, query string, args ...interface{}) (ticket.Ticket, error) {
	t, err := scanTicket(p.db.QueryRowContext(ctx, query, args...))
	if err == csql.ErrNoRows {
		return ticket.Ticket{}, fmt.Errorf("ticket %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("ticket %d: %w", id, err)
	}
	return t, nil
}
