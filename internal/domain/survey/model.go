package survey

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DrugRecord maps to the drug_records table. Structured fields are stored as
// jsonb and always exposed in decoded form.
type DrugRecord struct {
	ID           uuid.UUID `db:"id" json:"id"`
	RecordNumber string    `db:"record_number" json:"record_number"`

	FirstName string  `db:"first_name" json:"first_name"`
	LastName  string  `db:"last_name" json:"last_name"`
	FullName  string  `db:"full_name" json:"full_name"`
	Nickname  *string `db:"nickname" json:"nickname,omitempty"`
	IDCard    string  `db:"id_card" json:"id_card"`
	Age       *int    `db:"age" json:"age,omitempty"`

	HouseNo  *string `db:"house_no" json:"house_no,omitempty"`
	Moo      *string `db:"moo" json:"moo,omitempty"`
	Soi      *string `db:"soi" json:"soi,omitempty"`
	Road     *string `db:"road" json:"road,omitempty"`
	Tambon   *string `db:"tambon" json:"tambon,omitempty"`
	Amphoe   *string `db:"amphoe" json:"amphoe,omitempty"`
	Province *string `db:"province" json:"province,omitempty"`
	Address  *string `db:"address" json:"address,omitempty"`

	HasUsedDrugs bool       `db:"has_used_drugs" json:"has_used_drugs"`
	DrugTypes    []string   `db:"drug_types" json:"drug_types"`
	Reasons      []string   `db:"reasons" json:"reasons"`
	StartDate    *string    `db:"start_date" json:"start_date,omitempty"`
	Usage        *Usage     `db:"usage_info" json:"usage,omitempty"`
	LastUsage    *LastUsage `db:"last_usage" json:"last_usage,omitempty"`
	Dealer       *Dealer    `db:"dealer" json:"dealer,omitempty"`
	Contact      *Contact   `db:"contact" json:"contact,omitempty"`
	Payment      *Payment   `db:"payment" json:"payment,omitempty"`

	Attachments []string `db:"attachments" json:"attachments"`
	Images      []string `db:"images" json:"images"`
	Files       []string `db:"files" json:"files"`

	Status         *string    `db:"status" json:"status,omitempty"`
	PDFStatus      *string    `db:"pdf_status" json:"pdf_status,omitempty"`
	PDFGeneratedAt *time.Time `db:"pdf_generated_at" json:"pdf_generated_at,omitempty"`
	PDFGeneratedBy *string    `db:"pdf_generated_by" json:"pdf_generated_by,omitempty"`
	PDFFilePath    *string    `db:"pdf_file_path" json:"pdf_file_path,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// AddressParts is populated on area-search results only.
	AddressParts *AddressParts `json:"address_parts,omitempty"`
}

// Usage describes consumption quantity and frequency.
type Usage struct {
	AmountPerTime string `json:"amount_per_time"`
	Frequency     string `json:"frequency"`
}

// LastUsage describes the most recent use and its source.
type LastUsage struct {
	Type     string `json:"type"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Amount   string `json:"amount"`
	Location string `json:"location"`
}

// Dealer identifies the seller on the most recent purchase.
type Dealer struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Nickname     string `json:"nickname"`
	PricePerUnit string `json:"price_per_unit"`
	TotalPrice   string `json:"total_price"`
}

// Contact lists channels between user and dealer.
type Contact struct {
	UserPhone      string `json:"user_phone"`
	DealerPhone    string `json:"dealer_phone"`
	UserLine       string `json:"user_line"`
	DealerLine     string `json:"dealer_line"`
	UserFacebook   string `json:"user_facebook"`
	DealerFacebook string `json:"dealer_facebook"`
}

// Payment describes how the purchase was settled. Bank fields are only
// meaningful when Method is "bank_transfer".
type Payment struct {
	Method          string `json:"method"`
	SenderBank      string `json:"sender_bank"`
	SenderAccount   string `json:"sender_account"`
	ReceiverBank    string `json:"receiver_bank"`
	ReceiverAccount string `json:"receiver_account"`
}

// AddressParts is the denormalized address attached to area-search results.
type AddressParts struct {
	HouseNo  string `json:"house_no"`
	Moo      string `json:"moo"`
	Tambon   string `json:"tambon"`
	Amphoe   string `json:"amphoe"`
	Province string `json:"province"`
}

// RecordUpdate carries a partial update. Nil fields are left untouched.
type RecordUpdate struct {
	FirstName    *string    `json:"first_name,omitempty"`
	LastName     *string    `json:"last_name,omitempty"`
	Nickname     *string    `json:"nickname,omitempty"`
	IDCard       *string    `json:"id_card,omitempty"`
	Age          *int       `json:"age,omitempty"`
	HouseNo      *string    `json:"house_no,omitempty"`
	Moo          *string    `json:"moo,omitempty"`
	Soi          *string    `json:"soi,omitempty"`
	Road         *string    `json:"road,omitempty"`
	Tambon       *string    `json:"tambon,omitempty"`
	Amphoe       *string    `json:"amphoe,omitempty"`
	Province     *string    `json:"province,omitempty"`
	Address      *string    `json:"address,omitempty"`
	HasUsedDrugs *bool      `json:"has_used_drugs,omitempty"`
	DrugTypes    *[]string  `json:"drug_types,omitempty"`
	Reasons      *[]string  `json:"reasons,omitempty"`
	StartDate    *string    `json:"start_date,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
	LastUsage    *LastUsage `json:"last_usage,omitempty"`
	Dealer       *Dealer    `json:"dealer,omitempty"`
	Contact      *Contact   `json:"contact,omitempty"`
	Payment      *Payment   `json:"payment,omitempty"`
	Status       *string    `json:"status,omitempty"`
}

// SearchFilters is the general search input: one keyword matched over the
// name columns, optionally narrowed by exact id card and province.
type SearchFilters struct {
	Keyword  string `json:"keyword"`
	IDCard   string `json:"id_card"`
	Province string `json:"province"`
}

// AreaFilters is the geographic search input, all exact-match and optional.
type AreaFilters struct {
	Province string `json:"province"`
	Amphoe   string `json:"amphoe"`
	Tambon   string `json:"tambon"`
	Moo      string `json:"moo"`
	HouseNo  string `json:"house_no"`
}

// AdvancedFilters is the rich search input.
type AdvancedFilters struct {
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Nickname     string   `json:"nickname"`
	IDCard       string   `json:"id_card"`
	Province     string   `json:"province"`
	Amphoe       string   `json:"amphoe"`
	Tambon       string   `json:"tambon"`
	AgeStart     *int     `json:"age_start"`
	AgeEnd       *int     `json:"age_end"`
	HasUsedDrugs *bool    `json:"has_used_drugs"`
	DrugTypes    []string `json:"drug_types"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Status       string   `json:"status"`
}

var (
	houseNoPattern  = regexp.MustCompile(`^(\d+(?:/\d+)?)`)
	mooPattern      = regexp.MustCompile(`ม\.(\d+)`)
	soiPattern      = regexp.MustCompile(`ซอย(\S+)`)
	roadPattern     = regexp.MustCompile(`ถ\.(\S+)`)
	tambonPattern   = regexp.MustCompile(`ต\.(\S+)`)
	amphoePattern   = regexp.MustCompile(`อ\.(\S+)`)
	provincePattern = regexp.MustCompile(`จ\.(\S+)`)
)

// ParsedAddress is the decomposition of a raw Thai address string.
type ParsedAddress struct {
	HouseNo  string `json:"house_no"`
	Moo      string `json:"moo"`
	Soi      string `json:"soi"`
	Road     string `json:"road"`
	Tambon   string `json:"tambon"`
	Amphoe   string `json:"amphoe"`
	Province string `json:"province"`
}

// ParseThaiAddress decomposes a raw address string using the conventional
// Thai markers (ม. ซอย ถ. ต. อ. จ.). Markers that are missing simply leave
// their component empty; parsing never fails.
func ParseThaiAddress(s string) ParsedAddress {
	var a ParsedAddress
	s = strings.TrimSpace(s)

	if m := houseNoPattern.FindStringSubmatch(s); m != nil {
		a.HouseNo = m[1]
	}
	if m := mooPattern.FindStringSubmatch(s); m != nil {
		a.Moo = m[1]
	}
	if m := soiPattern.FindStringSubmatch(s); m != nil {
		a.Soi = m[1]
	}
	if m := roadPattern.FindStringSubmatch(s); m != nil {
		a.Road = m[1]
	}
	if m := tambonPattern.FindStringSubmatch(s); m != nil {
		a.Tambon = m[1]
	}
	if m := amphoePattern.FindStringSubmatch(s); m != nil {
		a.Amphoe = m[1]
	}
	if m := provincePattern.FindStringSubmatch(s); m != nil {
		a.Province = m[1]
	}
	return a
}
