package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/internal/payroll/run"
	"github.com/shopspring/decimal"
)

// BankFileWriter renders a committed run's net pay as a direct deposit
// credit file, one credit record per bank allocation.
type BankFileWriter struct {
	payorName string
}

// NewBankFileWriter creates a bank file writer for the named payor
func NewBankFileWriter(payorName string) *BankFileWriter {
	return &BankFileWriter{payorName: payorName}
}

// MissingBankDetails marks a record for an employee with no usable
// bank allocation, so net pay is visibly unroutable instead of dropped.
const MissingBankDetails = "MISSING_BANK_DETAILS"

// bankFileHeader is the fixed column-name row every file starts with.
const bankFileHeader = "RecordType,PayorName,FileCreationNumber,PaymentDate,PayeeBankDetails,PayeeName,Amount"

// Write renders the credit file for the run. The first line is the
// fixed column-name header; each following line is one credit:
//
//	C,<payor>,001,<YYYYMMDD>,<institution>-<transit>-<account>,<employee name>,<amount in cents>
//
// An employee's net pay splits across allocations by percentage. When
// the allocations total 100%, the final allocation absorbs the rounding
// remainder so the splits sum exactly to net pay. When they total less
// than 100%, each allocation gets only its own share and the unrouted
// remainder is emitted as a MISSING_BANK_DETAILS credit. Employees
// without usable allocations produce a single MISSING_BANK_DETAILS
// record for the full net pay.
func (w *BankFileWriter) Write(result *run.Result, employees []*domain.Employee, valueDate time.Time) string {
	var b strings.Builder

	b.WriteString(bankFileHeader + "\n")

	hundred := decimal.NewFromInt(100)
	for _, stub := range result.Paystubs {
		emp := findEmployee(employees, stub.EmployeeID)
		allocations := usableAllocations(emp)

		if len(allocations) == 0 {
			w.writeCredit(&b, valueDate, MissingBankDetails, stub.EmployeeName, stub.NetPay)
			continue
		}

		totalPercent := decimal.Zero
		for _, alloc := range allocations {
			totalPercent = totalPercent.Add(alloc.Percent)
		}
		fullyAllocated := totalPercent.GreaterThanOrEqual(hundred)

		remaining := stub.NetPay
		for i, alloc := range allocations {
			amount := domain.RoundCents(stub.NetPay.Mul(alloc.Percent).Div(hundred))
			if fullyAllocated && i == len(allocations)-1 {
				amount = remaining
			}
			remaining = remaining.Sub(amount)

			routing := fmt.Sprintf("%s-%s-%s", alloc.Institution, alloc.Transit, alloc.Account)
			w.writeCredit(&b, valueDate, routing, stub.EmployeeName, amount)
		}

		if remaining.Sign() > 0 {
			w.writeCredit(&b, valueDate, MissingBankDetails, stub.EmployeeName, remaining)
		}
	}

	return b.String()
}

func (w *BankFileWriter) writeCredit(b *strings.Builder, valueDate time.Time, routing, name string, amount decimal.Decimal) {
	fmt.Fprintf(b, "C,%s,001,%s,%s,%s,%d\n",
		w.payorName, valueDate.Format("20060102"), routing, name, domain.Cents(amount))
}

func findEmployee(employees []*domain.Employee, employeeID string) *domain.Employee {
	for _, emp := range employees {
		if emp.ID == employeeID {
			return emp
		}
	}
	return nil
}

func usableAllocations(emp *domain.Employee) []domain.BankAllocation {
	if emp == nil {
		return nil
	}
	usable := make([]domain.BankAllocation, 0, len(emp.BankAllocations))
	for _, alloc := range emp.BankAllocations {
		if alloc.Institution == "" || alloc.Transit == "" || alloc.Account == "" {
			continue
		}
		if alloc.Percent.Sign() <= 0 {
			continue
		}
		usable = append(usable, alloc)
	}
	return usable
}
