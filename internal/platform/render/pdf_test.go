package render

import (
	"strings"
	"testing"
	"time"

	"github.com/dsr/dsr/internal/domain/survey"
)

func reportText(rec *survey.DrugRecord) string {
	var b strings.Builder
	for _, ln := range buildReport(rec) {
		b.WriteString(ln.text)
		b.WriteString("\n")
	}
	return b.String()
}

func TestBuildReport_NonUserOmitsUsageBlock(t *testing.T) {
	rec := sampleRecord()
	rec.HasUsedDrugs = false

	text := reportText(rec)
	if !strings.Contains(text, "☐ เคย ☒ ไม่เคย") {
		t.Error("history checkboxes not marked for non-user")
	}
	if strings.Contains(text, "3. กรณีเคยเสพยาเสพติด") {
		t.Error("usage block rendered for non-user")
	}
	if !strings.Contains(text, "ลงชื่อ .................................. ผู้ซักถาม") {
		t.Error("signature footer missing")
	}
}

func TestBuildReport_ChecklistsReflectRecord(t *testing.T) {
	rec := sampleRecord()
	rec.HasUsedDrugs = true
	rec.DrugTypes = []string{"ยาบ้า", "กัญชา"}
	rec.Reasons = []string{"เพื่อนชวน"}

	text := reportText(rec)
	if !strings.Contains(text, "ยาบ้า ☒ ยาไอซ์ ☐ อื่นๆ ☒") {
		t.Errorf("drug type checklist wrong:\n%s", text)
	}
	if !strings.Contains(text, "อยากลอง ☐ เพื่อนชวน ☒") {
		t.Error("reason checklist wrong")
	}
}

func TestBuildReport_BankTransferShowsAccounts(t *testing.T) {
	rec := sampleRecord()
	rec.HasUsedDrugs = true
	rec.LastUsage = &survey.LastUsage{Type: "ยาบ้า", Date: "1 สิงหาคม 2569"}
	rec.Payment = &survey.Payment{
		Method:          "bank_transfer",
		SenderBank:      "กรุงไทย",
		SenderAccount:   "111-1-11111-1",
		ReceiverBank:    "กสิกรไทย",
		ReceiverAccount: "222-2-22222-2",
	}

	text := reportText(rec)
	if !strings.Contains(text, "☒ โดยการโอนเงินผ่านบัญชี") {
		t.Error("transfer marker missing")
	}
	if !strings.Contains(text, "กรุงไทย") || !strings.Contains(text, "222-2-22222-2") {
		t.Error("account details missing")
	}
}

func TestBuildReport_CashPaymentOmitsAccounts(t *testing.T) {
	rec := sampleRecord()
	rec.HasUsedDrugs = true
	rec.LastUsage = &survey.LastUsage{}
	rec.Payment = &survey.Payment{Method: "cash"}

	text := reportText(rec)
	if !strings.Contains(text, "ชำระเป็นเงินสด ☒") {
		t.Error("cash checkbox not marked")
	}
	if strings.Contains(text, "โดยการโอนเงินผ่านบัญชี") {
		t.Error("transfer block rendered for cash payment")
	}
}

func TestBuildReport_MissingValuesBecomeDotFillers(t *testing.T) {
	rec := &survey.DrugRecord{RecordNumber: "DRUG-2026-0001", CreatedAt: time.Now()}

	text := reportText(rec)
	if !strings.Contains(text, "ชื่อ .............................") {
		t.Error("missing first name not dotted")
	}
	if !strings.Contains(text, "อำเภอ ธวัชบุรี จังหวัด ร้อยเอ็ด") {
		t.Error("district defaults missing")
	}
}

func TestThaiDate_BuddhistEra(t *testing.T) {
	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if got := thaiDate(ts); got != "30/8/2569" {
		t.Errorf("thaiDate = %q, want 30/8/2569", got)
	}
}

func TestExportRows_FlattensRecord(t *testing.T) {
	age := 27
	tambon, amphoe, province, houseNo := "มะอึ", "ธวัชบุรี", "ร้อยเอ็ด", "99/1"
	rec := &survey.DrugRecord{
		RecordNumber: "DRUG-2026-0007",
		FirstName:    "สมชาย",
		LastName:     "ใจดี",
		IDCard:       "1234567890123",
		Age:          &age,
		HouseNo:      &houseNo,
		Tambon:       &tambon,
		Amphoe:       &amphoe,
		Province:     &province,
		HasUsedDrugs: true,
		DrugTypes:    []string{"ยาบ้า", "ยาไอซ์"},
		Reasons:      []string{"อยากลอง"},
	}

	rows := exportRows(rec)
	if rows[0] != [2]string{"หัวข้อ", "ข้อมูล"} {
		t.Errorf("header row = %v", rows[0])
	}

	want := map[string]string{
		"เลขที่บันทึก":     "DRUG-2026-0007",
		"ชื่อ-สกุล":        "สมชาย ใจดี",
		"อายุ":             "27",
		"ที่อยู่":          "99/1 ต.มะอึ อ.ธวัชบุรี จ.ร้อยเอ็ด",
		"ประวัติการใช้ยา":  "เคย",
		"ประเภทยา":         "ยาบ้า, ยาไอซ์",
		"เหตุผล":           "อยากลอง",
	}
	got := map[string]string{}
	for _, row := range rows[1:] {
		got[row[0]] = row[1]
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestSections_AbsentPayloadsAreNil(t *testing.T) {
	rec := sampleRecord()
	rec.HasUsedDrugs = false
	if usageSection(rec) != nil {
		t.Error("usage section present without usage history")
	}
	if usagePatternSection(nil) != nil {
		t.Error("usage pattern section present without payload")
	}
	if dealerSection(nil) != nil {
		t.Error("dealer section present without payload")
	}
	if contactSection(nil) != nil {
		t.Error("contact section present without payload")
	}
	if paymentSection(nil) != nil {
		t.Error("payment section present without payload")
	}
	if transferSection(&survey.Payment{Method: "cash"}) != nil {
		t.Error("transfer section present for cash payment")
	}
}

func TestWalk_SkipsAbsentBranches(t *testing.T) {
	tree := &section{
		lines: []line{row("a")},
		children: []*section{
			nil,
			{lines: []line{row("b")}, children: []*section{nil, {lines: []line{row("c")}}}},
			nil,
		},
	}
	var got []string
	walk(tree, func(ln line) { got = append(got, ln.text) })
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("walk emitted %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("walk emitted %v, want %v", got, want)
		}
	}
}
