package executors

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"dental-receptionist-server/internal/events"
	"dental-receptionist-server/internal/models"
	"dental-receptionist-server/internal/parse"
)

// BusinessCall is a call from a supplier, lab or agent.
type BusinessCall struct {
	CallerName    string
	CompanyName   string
	ContactNumber string
	Purpose       string
	Notes         string
}

// OrderUpdate marks a patient's product order with a new status.
type OrderUpdate struct {
	PatientID   uint
	PatientName string
	ProductName string
	Status      models.OrderStatus
	Notes       string
}

// BusinessExecutor handles supplier checks, order updates and the business call log.
type BusinessExecutor struct {
	base
}

func NewBusinessExecutor(d Deps) *BusinessExecutor {
	return &BusinessExecutor{base: newBase(d, "business")}
}

// CheckSupplier matches a company name against the active supplier list.
func (e *BusinessExecutor) CheckSupplier(ctx context.Context, companyName string) Result {
	q := strings.ToLower(strings.TrimSpace(companyName))
	if q == "" {
		return statusResult(StatusMissingInfo, "Company name is required.")
	}

	var suppliers []models.Supplier
	if err := e.db.WithContext(ctx).Where("is_active = ?", true).Order("supplier_id").Find(&suppliers).Error; err != nil {
		return e.dbFailure("list suppliers", err)
	}

	match, ok := lo.Find(suppliers, func(s models.Supplier) bool {
		name := strings.ToLower(s.CompanyName)
		if strings.Contains(name, q) || strings.Contains(q, name) {
			return true
		}
		// "AusDental" should find "AusDental Labs Pty Ltd"
		words := strings.Fields(name)
		return len(words) > 0 && len(words[0]) > 3 && strings.Contains(q, words[0])
	})
	if !ok {
		return statusResult(StatusNotFound, fmt.Sprintf("%s is not on our supplier list.", strings.TrimSpace(companyName)))
	}
	return Result{
		"status":       StatusFound,
		"company_name": match.CompanyName,
		"specialty":    match.Specialty,
		"message":      fmt.Sprintf("Verified supplier: %s.", match.CompanyName),
	}
}

func productKeyword(product string) string {
	fields := strings.Fields(strings.ToLower(product))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// UpdateOrder marks the newest undelivered order matching the product. The
// patient is found by id when given, otherwise by name.
func (e *BusinessExecutor) UpdateOrder(ctx context.Context, u OrderUpdate) Result {
	keyword := productKeyword(u.ProductName)
	if keyword == "" || (u.PatientID == 0 && strings.TrimSpace(u.PatientName) == "") {
		return statusResult(StatusMissingInfo, "Need the product and either the patient id or the patient's name.")
	}
	if u.Status == "" {
		u.Status = models.OrderReady
	}
	if !u.Status.Valid() {
		return errorResult(fmt.Sprintf("Unknown order status %q.", u.Status))
	}

	q := e.db.WithContext(ctx).
		Where("order_status <> ? AND LOWER(product_name) LIKE ?", models.OrderDelivered, "%"+keyword+"%")
	if u.PatientID != 0 {
		q = q.Where("patient_id = ?", u.PatientID)
	} else {
		parts := strings.Fields(strings.ToLower(u.PatientName))
		q = q.Where("LOWER(last_name) = ?", parts[len(parts)-1])
		if len(parts) > 1 {
			q = q.Where("LOWER(first_name) = ?", parts[0])
		}
	}

	var order models.Order
	err := q.Order("placed_at DESC").First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return statusResult(StatusNotFound, "No matching order found for that patient.")
	}
	if err != nil {
		return e.dbFailure("find order", err)
	}

	if err := e.db.WithContext(ctx).Model(&order).Updates(map[string]interface{}{
		"order_status": u.Status,
		"notes":        u.Notes,
	}).Error; err != nil {
		return e.dbFailure("update order", err)
	}

	patientName := strings.TrimSpace(order.FirstName + " " + order.LastName)
	if u.Status == models.OrderReady {
		e.emit(ctx, events.OrderReady, map[string]any{
			"order_id":   order.OrderID,
			"patient_id": order.PatientID,
			"product":    order.ProductName,
		})
	}
	return Result{
		"status":       StatusUpdated,
		"patient_name": patientName,
		"product_name": order.ProductName,
		"order_status": string(u.Status),
		"message":      fmt.Sprintf("%s for %s is now marked %s.", order.ProductName, patientName, u.Status),
	}
}

// UpdateOrderByPatientID marks a patient's order by patient id.
func (e *BusinessExecutor) UpdateOrderByPatientID(ctx context.Context, patientID uint, product string, status models.OrderStatus, notes string) Result {
	return e.UpdateOrder(ctx, OrderUpdate{PatientID: patientID, ProductName: product, Status: status, Notes: notes})
}

// UpdateOrderByPatientName marks a patient's order by "First Last" or last name.
func (e *BusinessExecutor) UpdateOrderByPatientName(ctx context.Context, patientName, product string, status models.OrderStatus, notes string) Result {
	return e.UpdateOrder(ctx, OrderUpdate{PatientName: patientName, ProductName: product, Status: status, Notes: notes})
}

// LogCall appends a business call to the log.
func (e *BusinessExecutor) LogCall(ctx context.Context, call BusinessCall) Result {
	purpose := strings.TrimSpace(call.Purpose)
	if purpose == "" {
		purpose = models.PurposeGeneral
	}
	entry := models.BusinessLog{
		CallerName:    parse.TitleCase(call.CallerName),
		CompanyName:   strings.TrimSpace(call.CompanyName),
		ContactNumber: parse.NormalizePhone(call.ContactNumber),
		Purpose:       purpose,
		FullCallNotes: call.Notes,
	}
	if err := e.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return e.dbFailure("log business call", err)
	}

	e.emit(ctx, events.BusinessCallLogged, map[string]any{
		"log_id":  entry.LogID,
		"company": entry.CompanyName,
		"purpose": entry.Purpose,
	})

	caller, company := entry.CallerName, entry.CompanyName
	if caller == "" {
		caller = "caller"
	}
	if company == "" {
		company = "unknown"
	}
	return Result{
		"status":  StatusLogged,
		"message": fmt.Sprintf("Call from %s (%s) logged.", caller, company),
	}
}

// OrderView is an order as read back to a patient.
type OrderView struct {
	Product string `json:"product"`
	Status  string `json:"status"`
	Notes   string `json:"notes"`
}

// OrdersForPatient lists the patient's orders, newest first.
func (e *BusinessExecutor) OrdersForPatient(ctx context.Context, patientID uint) Result {
	var rows []models.Order
	err := e.db.WithContext(ctx).Where("patient_id = ?", patientID).Order("placed_at DESC").Find(&rows).Error
	if err != nil {
		return e.dbFailure("list orders", err)
	}
	return Result{
		"status": StatusSuccess,
		"orders": lo.Map(rows, func(o models.Order, _ int) OrderView {
			return OrderView{Product: o.ProductName, Status: string(o.OrderStatus), Notes: o.Notes}
		}),
		"count": len(rows),
	}
}

var callKeywords = []struct {
	purpose  string
	keywords []string
}{
	{models.PurposeOrderReady, []string{
		"ready", "order is ready", "order ready", "pickup", "denture", "crown", "x-ray", "xray",
		"mouthguard", "appliance", "lab work", "has been completed", "is complete", "available for collection",
	}},
	{models.PurposeInvoice, []string{
		"invoice", "billing", "payment", "bill", "outstanding", "account", "overdue", "statement", "charge", "fee",
	}},
	{models.PurposePromotion, []string{
		"promotion", "offer", "partnership", "collaborate", "product range", "services", "advertise",
		"market", "business opportunity", "introduce", "represent",
	}},
}

// ClassifyCall scores a business caller's words against each purpose. Ties
// go to the earlier purpose; no hits is a general business call.
func ClassifyCall(text string) string {
	t := strings.ToLower(text)
	best, bestScore := models.PurposeGeneral, 0
	for _, group := range callKeywords {
		score := lo.CountBy(group.keywords, func(kw string) bool { return strings.Contains(t, kw) })
		if score > bestScore {
			best, bestScore = group.purpose, score
		}
	}
	return best
}
