package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"github.com/dsr/dsr/internal/domain/survey"
)

const (
	fontName   = "sarabun"
	pageWidth  = 595.28
	marginLeft = 40.0
	marginTop  = 40.0
	maxY       = 790.0
)

// line is one rendered row of the interview form.
type line struct {
	text   string
	size   float64
	center bool
	right  bool
	gap    float64
}

func check(b bool) string {
	if b {
		return "☒"
	}
	return "☐"
}

func orDots(v string, width int) string {
	if v == "" {
		return strings.Repeat(".", width)
	}
	return v
}

func strOrDots(p *string, width int) string {
	if p == nil {
		return strings.Repeat(".", width)
	}
	return orDots(*p, width)
}

func intOrDots(p *int, width int) string {
	if p == nil {
		return strings.Repeat(".", width)
	}
	return strconv.Itoa(*p)
}

func strOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func hasOther(set []string) bool {
	for _, s := range set {
		if s != "ยาบ้า" && s != "ยาไอซ์" {
			return true
		}
	}
	return false
}

// thaiDate renders a Buddhist-era calendar date.
func thaiDate(t time.Time) string {
	t = t.In(bangkok)
	return fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year()+543)
}

// section is one block of the interview form. A nil section is absent and
// contributes nothing; a present section contributes its own lines, then its
// children in order. Conditional blocks nest as children of the block that
// governs them, so an absent parent suppresses the whole subtree.
type section struct {
	lines    []line
	children []*section
}

// walk flattens a section tree depth first, skipping absent branches.
func walk(s *section, emit func(line)) {
	if s == nil {
		return
	}
	for _, ln := range s.lines {
		emit(ln)
	}
	for _, c := range s.children {
		walk(c, emit)
	}
}

func row(text string) line { return line{text: text, size: 14} }

func blank() line { return line{size: 14} }

func titleSection() *section {
	return &section{lines: []line{
		{text: "แบบซักถาม", size: 20, center: true, gap: 6},
		{text: "ข้อมูลผู้เกี่ยวข้องกับยาเสพติด", size: 16, center: true, gap: 10},
	}}
}

func subjectSection(rec *survey.DrugRecord) *section {
	return &section{lines: []line{
		row(fmt.Sprintf("1. เป้าหมาย ชื่อ %s สกุล %s อายุ %s ปี",
			orDots(rec.FirstName, 29), orDots(rec.LastName, 29), intOrDots(rec.Age, 8))),
		row(fmt.Sprintf("หมายเลขบัตรประชาชน %s", orDots(rec.IDCard, 34))),
		row(fmt.Sprintf("บ้านเลขที่ %s หมู่ที่ %s ตำบล %s อำเภอ %s จังหวัด %s",
			strOrDots(rec.HouseNo, 8), strOrDots(rec.Moo, 8), strOrDots(rec.Tambon, 24),
			strOr(rec.Amphoe, "ธวัชบุรี"), strOr(rec.Province, "ร้อยเอ็ด"))),
		blank(),
	}}
}

func historySection(rec *survey.DrugRecord) *section {
	return &section{lines: []line{
		row(fmt.Sprintf("2. เคยเสพยาเสพติดหรือไม่ %s เคย %s ไม่เคย",
			check(rec.HasUsedDrugs), check(!rec.HasUsedDrugs))),
		blank(),
	}}
}

// usageSection covers the whole clause-3 block. Absent unless the subject has
// a usage history.
func usageSection(rec *survey.DrugRecord) *section {
	if !rec.HasUsedDrugs {
		return nil
	}
	return &section{
		lines: []line{
			row("3. กรณีเคยเสพยาเสพติด"),
			row("3.1 เสพยาเสพติดประเภท"),
			row(fmt.Sprintf("ยาบ้า %s ยาไอซ์ %s อื่นๆ %s",
				check(contains(rec.DrugTypes, "ยาบ้า")),
				check(contains(rec.DrugTypes, "ยาไอซ์")),
				check(hasOther(rec.DrugTypes)))),
			row(fmt.Sprintf("3.2 เริ่มเสพเมื่อ %s", strOrDots(rec.StartDate, 33))),
			row("3.3 แรงจูงใจในการเสพยาเสพติด"),
			row(fmt.Sprintf("อยากลอง %s เพื่อนชวน %s",
				check(contains(rec.Reasons, "อยากลอง")),
				check(contains(rec.Reasons, "เพื่อนชวน")))),
			row(fmt.Sprintf("ต้องการทำงานได้มากขึ้น %s ถูกบังคับ %s",
				check(contains(rec.Reasons, "ต้องการทำงานได้มากขึ้น")),
				check(contains(rec.Reasons, "ถูกบังคับ")))),
		},
		children: []*section{
			usagePatternSection(rec.Usage),
			lastUsageSection(rec),
		},
	}
}

func usagePatternSection(u *survey.Usage) *section {
	if u == nil {
		return nil
	}
	return &section{lines: []line{
		row(fmt.Sprintf("3.4 การใช้ยาเสพติด จำนวนที่เสพแต่ละครั้ง %s เม็ด",
			orDots(u.AmountPerTime, 8))),
		row(fmt.Sprintf("ระยะในการเสพ เดือนละ %s ครั้ง", orDots(u.Frequency, 8))),
	}}
}

func lastUsageSection(rec *survey.DrugRecord) *section {
	lu := rec.LastUsage
	if lu == nil {
		return nil
	}
	return &section{
		lines: []line{
			row("3.5 เสพยาเสพติดครั้งสุดท้าย"),
			row(fmt.Sprintf("ประเภท %s เมื่อวันที่ %s เวลา %s น. จำนวน %s เม็ด",
				orDots(lu.Type, 16), orDots(lu.Date, 19),
				orDots(lu.Time, 10), orDots(lu.Amount, 8))),
		},
		children: []*section{
			dealerSection(rec.Dealer),
			contactSection(rec.Contact),
			paymentSection(rec.Payment),
		},
	}
}

func dealerSection(d *survey.Dealer) *section {
	if d == nil {
		return nil
	}
	return &section{lines: []line{
		row("ข้อมูลผู้ขาย:"),
		row(fmt.Sprintf("ชื่อ %s สกุล %s ชื่อเล่น %s",
			orDots(d.FirstName, 16), orDots(d.LastName, 16), orDots(d.Nickname, 16))),
		row(fmt.Sprintf("ราคาเม็ดละ %s บาท รวมเป็นเงิน %s บาท",
			orDots(d.PricePerUnit, 8), orDots(d.TotalPrice, 8))),
	}}
}

func contactSection(c *survey.Contact) *section {
	if c == nil {
		return nil
	}
	return &section{lines: []line{
		row("3.6 ติดต่อกับผู้ขายโดย:"),
		row("เบอร์โทรศัพท์:"),
		row(fmt.Sprintf("- ผู้เสพ: %s", orDots(c.UserPhone, 16))),
		row(fmt.Sprintf("- ผู้ขาย: %s", orDots(c.DealerPhone, 16))),
		row("LINE ID:"),
		row(fmt.Sprintf("- ผู้เสพ: %s", orDots(c.UserLine, 16))),
		row(fmt.Sprintf("- ผู้ขาย: %s", orDots(c.DealerLine, 16))),
		row("Facebook:"),
		row(fmt.Sprintf("- ผู้เสพ: %s", orDots(c.UserFacebook, 16))),
		row(fmt.Sprintf("- ผู้ขาย: %s", orDots(c.DealerFacebook, 16))),
	}}
}

func paymentSection(p *survey.Payment) *section {
	if p == nil {
		return nil
	}
	return &section{
		lines: []line{
			row("3.7 ชำระเงินค่ายาเสพติด:"),
			row(fmt.Sprintf("ชำระเป็นเงินสด %s", check(p.Method == "cash"))),
		},
		children: []*section{transferSection(p)},
	}
}

func transferSection(p *survey.Payment) *section {
	if p.Method != "bank_transfer" {
		return nil
	}
	return &section{lines: []line{
		row("☒ โดยการโอนเงินผ่านบัญชี"),
		row(fmt.Sprintf("- บัญชีผู้โอน: %s", orDots(p.SenderBank, 16))),
		row(fmt.Sprintf("  เลขที่บัญชี: %s", orDots(p.SenderAccount, 16))),
		row(fmt.Sprintf("- บัญชีผู้รับโอน: %s", orDots(p.ReceiverBank, 16))),
		row(fmt.Sprintf("  เลขที่บัญชี: %s", orDots(p.ReceiverAccount, 16))),
	}}
}

func signatureSection(rec *survey.DrugRecord) *section {
	return &section{lines: []line{
		blank(),
		row("ลงชื่อ .................................. ผู้ให้ข้อมูล"),
		blank(),
		row("ลงชื่อ .................................. ผู้ซักถาม"),
		blank(),
		{
			text:  fmt.Sprintf("บันทึกเมื่อวันที่ %s", thaiDate(rec.CreatedAt)),
			size:  12,
			right: true,
		},
	}}
}

// buildReport lays the record out as the interview form by flattening the
// section tree. Absent optional blocks produce no lines at all.
func buildReport(rec *survey.DrugRecord) []line {
	form := &section{children: []*section{
		titleSection(),
		subjectSection(rec),
		historySection(rec),
		usageSection(rec),
		signatureSection(rec),
	}}
	var out []line
	walk(form, func(ln line) { out = append(out, ln) })
	return out
}

func (s *Service) renderPDF(rec *survey.DrugRecord, path string) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := pdf.AddTTFFont(fontName, s.fontPath); err != nil {
		return err
	}
	pdf.AddPage()
	pdf.SetY(marginTop)

	for _, ln := range buildReport(rec) {
		if err := pdf.SetFont(fontName, "", ln.size); err != nil {
			return err
		}
		if pdf.GetY() > maxY {
			pdf.AddPage()
			pdf.SetY(marginTop)
		}

		x := marginLeft
		if ln.center || ln.right {
			if w, err := pdf.MeasureTextWidth(ln.text); err == nil {
				if ln.center {
					x = (pageWidth - w) / 2
				} else {
					x = pageWidth - marginLeft - w
				}
			}
		}
		pdf.SetX(x)

		if ln.text != "" {
			if err := pdf.Cell(nil, ln.text); err != nil {
				return err
			}
		}
		pdf.Br(ln.size + 6 + ln.gap)
	}

	return pdf.WritePdf(path)
}
