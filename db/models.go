package db

import (
	"database/sql/driver"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"
)

type ServiceType string

const (
	ServiceTypeWeekday  ServiceType = "Weekday"
	ServiceTypeSaturday ServiceType = "Saturday"
	ServiceTypeSunday   ServiceType = "Sunday"
)

func (e *ServiceType) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = ServiceType(s)
	case string:
		*e = ServiceType(s)
	default:
		return fmt.Errorf("unsupported scan type for ServiceType: %T", src)
	}
	return nil
}

type NullServiceType struct {
	ServiceType ServiceType
	Valid       bool // Valid is true if ServiceType is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullServiceType) Scan(value interface{}) error {
	if value == nil {
		ns.ServiceType, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.ServiceType.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullServiceType) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.ServiceType), nil
}

type TripdirType string

const (
	TripdirTypeOut  TripdirType = "Out"
	TripdirTypeBack TripdirType = "Back"
)

func (e *TripdirType) Scan(src interface{}) error {
	switch s := src.(type) {
	case []byte:
		*e = TripdirType(s)
	case string:
		*e = TripdirType(s)
	default:
		return fmt.Errorf("unsupported scan type for TripdirType: %T", src)
	}
	return nil
}

type NullTripdirType struct {
	TripdirType TripdirType
	Valid       bool // Valid is true if TripdirType is not NULL
}

// Scan implements the Scanner interface.
func (ns *NullTripdirType) Scan(value interface{}) error {
	if value == nil {
		ns.TripdirType, ns.Valid = "", false
		return nil
	}
	ns.Valid = true
	return ns.TripdirType.Scan(value)
}

// Value implements the driver Valuer interface.
func (ns NullTripdirType) Value() (driver.Value, error) {
	if !ns.Valid {
		return nil, nil
	}
	return string(ns.TripdirType), nil
}

type Breadcrumb struct {
	Tstamp    pgtype.Timestamp
	Latitude  pgtype.Float8
	Longitude pgtype.Float8
	Speed     pgtype.Float8
	TripID    int64
}

type Trip struct {
	TripID     int64
	RouteID    pgtype.Int8
	VehicleID  pgtype.Int8
	ServiceKey NullServiceType
	Direction  NullTripdirType
}
