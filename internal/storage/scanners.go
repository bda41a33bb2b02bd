package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/ernie/fragfeed/internal/eventlog"
)

func scanNullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func scanNullTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}

// scanner is an interface satisfied by both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// scanRecord scans an event log row
func scanRecord(s scanner) (*eventlog.Record, error) {
	var rec eventlog.Record
	var clientID sql.NullString
	var content string
	if err := s.Scan(&rec.ID, &rec.Action, &clientID, &content); err != nil {
		return nil, err
	}
	rec.ClientID = scanNullStringValue(clientID)
	rec.Content = json.RawMessage(content)
	return &rec, nil
}

// scanUser scans a user row from the database
func scanUser(s scanner) (*User, error) {
	var user User
	var lastLogin sql.NullTime
	err := s.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.IsAdmin,
		&user.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	user.LastLogin = scanNullTime(lastLogin)
	return &user, nil
}
