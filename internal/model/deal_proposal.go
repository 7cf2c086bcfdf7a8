package model

import (
	"time"

	"github.com/google/uuid"
)

type ProposalStatus string

const (
	ProposalStatusMatched  ProposalStatus = "matched"
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

type MoneyDirection string

const (
	MoneyDirectionNone    MoneyDirection = ""
	MoneyDirectionReceive MoneyDirection = "receive"
	MoneyDirectionGive    MoneyDirection = "give"
)

// DealProposal is one step of a negotiation thread. The from/to orientation
// marks who is currently offering; it flips on every counter-offer. An
// optional cash top-up rides in MoneyDirection/MoneyAmount (historical rows
// may instead carry a [MONEY:...] tag inside Message, decoded on read).
type DealProposal struct {
	ID             uuid.UUID      `gorm:"type:char(36);primaryKey"`
	FromCompanyID  uuid.UUID      `gorm:"type:char(36);index;not null"`
	ToCompanyID    uuid.UUID      `gorm:"type:char(36);index;not null"`
	FromServiceID  uuid.UUID      `gorm:"type:char(36);not null"`
	ToServiceID    uuid.UUID      `gorm:"type:char(36);not null"`
	Status         ProposalStatus `gorm:"size:16;index;not null"`
	Message        *string        `gorm:"type:text"`
	MoneyDirection MoneyDirection `gorm:"size:16"`
	MoneyAmount    int            `gorm:"not null;default:0"`
	CreatedAt      time.Time      `gorm:"not null"`
}

func (DealProposal) TableName() string {
	return "deal_proposals"
}

// Involves reports whether the company is a party to this proposal.
func (p DealProposal) Involves(companyID uuid.UUID) bool {
	return p.FromCompanyID == companyID || p.ToCompanyID == companyID
}
