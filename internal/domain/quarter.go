package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Quarter is the academic quarter an application is for. Only Q1..Q4 exist.
type Quarter int16

const (
	Q1 Quarter = iota + 1
	Q2
	Q3
	Q4
)

// Quarters lists every valid quarter in order.
func Quarters() []Quarter {
	return []Quarter{Q1, Q2, Q3, Q4}
}

func (q Quarter) Valid() bool {
	return q >= Q1 && q <= Q4
}

func (q Quarter) String() string {
	if !q.Valid() {
		return fmt.Sprintf("Quarter(%d)", int16(q))
	}
	return "Q" + strconv.Itoa(int(q))
}

// Code is the stored form of q, as submitted by forms.
func (q Quarter) Code() string {
	return strconv.Itoa(int(q))
}

// ParseQuarter accepts the stored code ("1".."4").
func ParseQuarter(s string) (Quarter, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quarter %q", s)
	}
	q := Quarter(n)
	if !q.Valid() {
		return 0, fmt.Errorf("invalid quarter %q", s)
	}
	return q, nil
}

// Value implements driver.Valuer.
func (q Quarter) Value() (driver.Value, error) {
	if !q.Valid() {
		return nil, fmt.Errorf("invalid quarter %d", int16(q))
	}
	return int64(q), nil
}

// Scan implements sql.Scanner.
func (q *Quarter) Scan(src any) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int32:
		n = int64(v)
	case int16:
		n = int64(v)
	case []byte:
		parsed, err := strconv.ParseInt(string(v), 10, 16)
		if err != nil {
			return fmt.Errorf("scan quarter: %w", err)
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(v, 10, 16)
		if err != nil {
			return fmt.Errorf("scan quarter: %w", err)
		}
		n = parsed
	default:
		return fmt.Errorf("scan quarter: unsupported type %T", src)
	}
	scanned := Quarter(n)
	if !scanned.Valid() {
		return fmt.Errorf("scan quarter: invalid code %d", n)
	}
	*q = scanned
	return nil
}
