// Package status maps backend status strings onto the satgas approval
// states and the card print pipelines.
package status

import (
	"errors"
	"strings"
)

var (
	ErrUnknownStatus     = errors.New("unknown status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type SatgasStatus int

const (
	SatgasUnknown SatgasStatus = iota
	SatgasPending
	SatgasApproved
	SatgasRejected
)

var satgasCodes = map[string]SatgasStatus{
	"pending":   SatgasPending,
	"request":   SatgasPending,
	"approved":  SatgasApproved,
	"disetujui": SatgasApproved,
	"rejected":  SatgasRejected,
	"ditolak":   SatgasRejected,
}

// ParseSatgas maps a backend status string. Unrecognised strings yield
// SatgasUnknown.
func ParseSatgas(code string) SatgasStatus {
	return satgasCodes[strings.ToLower(strings.TrimSpace(code))]
}

func (s SatgasStatus) String() string {
	switch s {
	case SatgasPending:
		return "pending"
	case SatgasApproved:
		return "approved"
	case SatgasRejected:
		return "rejected"
	}
	return "unknown"
}

func (s SatgasStatus) Label() string {
	switch s {
	case SatgasPending:
		return "Menunggu"
	case SatgasApproved:
		return "Disetujui"
	case SatgasRejected:
		return "Ditolak"
	}
	return "Tidak diketahui"
}

// Decidable reports whether an admin may still approve or reject.
func (s SatgasStatus) Decidable() bool {
	return s == SatgasPending
}
