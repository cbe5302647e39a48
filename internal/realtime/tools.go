package realtime

// Tool names
const (
	ToolVerifyExistingPatient     = "verify_existing_patient"
	ToolVerifyWithContactNumber   = "verify_with_contact_number"
	ToolCreateNewPatient          = "create_new_patient"
	ToolCheckSlotAvailability     = "check_slot_availability"
	ToolFindAnyAvailableDentist   = "find_any_available_dentist"
	ToolBookAppointment           = "book_appointment"
	ToolGetMyAppointments         = "get_my_appointments"
	ToolUpdateMyAppointment       = "update_my_appointment"
	ToolCancelMyAppointment       = "cancel_my_appointment"
	ToolFileComplaint             = "file_complaint"
	ToolGetBusinessInformation    = "get_business_information"
	ToolGetInsuranceInformation   = "get_insurance_information"
	ToolGetWarrantyInformation    = "get_warranty_information"
	ToolAnswerDentalQuestion      = "answer_dental_question"
	ToolGetMyOrderStatus          = "get_my_order_status"
	ToolGetMyUpcomingAppointments = "get_my_upcoming_appointments"
	ToolGetMyTreatmentHistory     = "get_my_treatment_history"
	ToolCheckKnownSupplier        = "check_known_supplier"
	ToolUpdateSupplierOrder       = "update_supplier_order"
	ToolLogSupplierCall           = "log_supplier_call"
)

// Tool declares a function the model may call.
type Tool struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func function(name, description string, properties map[string]any, required ...string) Tool {
	params := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		params["required"] = required
	}
	return Tool{Type: "function", Name: name, Description: description, Parameters: params}
}

func str(description string) map[string]any {
	p := map[string]any{"type": "string"}
	if description != "" {
		p["description"] = description
	}
	return p
}

func integer(description string) map[string]any {
	p := map[string]any{"type": "integer"}
	if description != "" {
		p["description"] = description
	}
	return p
}

var none = map[string]any{}

var queryParam = map[string]any{"query": str("The caller's question in their own words.")}

// Tools is the function schema sent with every session.
func Tools() []Tool {
	return []Tool{
		function(ToolVerifyExistingPatient,
			"Verify an existing patient by last name and date of birth. Only call once the caller has confirmed their date of birth.",
			map[string]any{
				"last_name":     str(""),
				"date_of_birth": str("Date of birth as spoken, for example 15 Jun 1990."),
			},
			"last_name", "date_of_birth"),
		function(ToolVerifyWithContactNumber,
			"Narrow down a verification when several patients share the last name and date of birth.",
			map[string]any{
				"last_name":      str(""),
				"date_of_birth":  str(""),
				"contact_number": str(""),
			},
			"last_name", "date_of_birth", "contact_number"),
		function(ToolCreateNewPatient,
			"Register a new patient once first name, last name, date of birth and contact number are collected. The account is not ready until this returns CREATED.",
			map[string]any{
				"first_name":     str(""),
				"last_name":      str(""),
				"date_of_birth":  str(""),
				"contact_number": str(""),
				"insurance_info": str("Health fund name, if the caller has one."),
			},
			"first_name", "last_name", "date_of_birth", "contact_number"),

		function(ToolCheckSlotAvailability,
			"Check whether a specific dentist is free at a date and time.",
			map[string]any{
				"date":         str("YYYY-MM-DD or a phrase such as next Thursday."),
				"time":         str("HH:MM or a phrase such as 3pm."),
				"dentist_name": str("Exact name: Dr. Emily Carter, Dr. James Nguyen or Dr. Sarah Mitchell."),
			},
			"date", "time", "dentist_name"),
		function(ToolFindAnyAvailableDentist,
			"Find any free dentist at a date and time when the caller has no preference.",
			map[string]any{
				"date": str(""),
				"time": str(""),
			},
			"date", "time"),
		function(ToolBookAppointment,
			"Book an appointment for the verified patient. Only call after the caller says yes to the full read-back.",
			map[string]any{
				"preferred_treatment": str("One of the clinic's services, exactly as listed."),
				"preferred_date":      str(""),
				"preferred_time":      str(""),
				"preferred_dentist":   str("Full dentist name with the Dr. prefix."),
			},
			"preferred_treatment", "preferred_date", "preferred_time", "preferred_dentist"),
		function(ToolGetMyAppointments,
			"List the verified patient's active appointments. Always call before updating or cancelling.",
			none),
		function(ToolUpdateMyAppointment,
			"Change an appointment chosen by its index from get_my_appointments.",
			map[string]any{
				"appointment_index": integer("1-based position in the list from get_my_appointments."),
				"new_treatment":     str(""),
				"new_date":          str(""),
				"new_time":          str(""),
				"new_dentist":       str(""),
			},
			"appointment_index"),
		function(ToolCancelMyAppointment,
			"Cancel an appointment chosen by its index after the caller confirms.",
			map[string]any{
				"appointment_index": integer("1-based position in the list from get_my_appointments."),
				"reason":            str(""),
			},
			"appointment_index"),

		function(ToolFileComplaint,
			"Save a complaint. A general complaint needs the caller's name and contact number and no verification. A treatment complaint needs a verified patient plus the treatment, dentist and date. Never ask for a date of birth for a general complaint.",
			map[string]any{
				"complaint_text":     str(""),
				"complaint_category": map[string]any{"type": "string", "enum": []string{"general", "treatment"}},
				"first_name":         str(""),
				"last_name":          str(""),
				"contact_number":     str(""),
				"treatment_name":     str(""),
				"dentist_name":       str(""),
				"treatment_date":     str(""),
				"treatment_time":     str(""),
				"additional_info":    str(""),
				"appointment_id":     integer(""),
			},
			"complaint_text", "complaint_category"),

		function(ToolGetBusinessInformation,
			"Prices, opening hours, payment options, offers and dentist information.",
			queryParam, "query"),
		function(ToolGetInsuranceInformation,
			"Health fund and insurance questions.",
			queryParam, "query"),
		function(ToolGetWarrantyInformation,
			"The clinic's warranty on treatments.",
			queryParam, "query"),
		function(ToolAnswerDentalQuestion,
			"Questions about dental procedures, preparation, aftercare and recovery. Not for prices.",
			queryParam, "query"),
		function(ToolGetMyOrderStatus,
			"Status of the verified patient's lab orders.",
			none),
		function(ToolGetMyUpcomingAppointments,
			"Upcoming appointments of the verified patient.",
			none),
		function(ToolGetMyTreatmentHistory,
			"Past treatments of the verified patient.",
			none),

		function(ToolCheckKnownSupplier,
			"Check whether a calling company is one of our suppliers. Call first whenever a business caller names their company.",
			map[string]any{"company_name": str("")},
			"company_name"),
		function(ToolUpdateSupplierOrder,
			"Mark a patient's order ready after a known supplier confirms it. Use patient_id when given, otherwise the patient's last name. Also log the call.",
			map[string]any{
				"patient_id":        integer(""),
				"patient_last_name": str(""),
				"product_name":      str(""),
			},
			"product_name"),
		function(ToolLogSupplierCall,
			"Log a call from a supplier, lab, agent or other business. Never for patient calls.",
			map[string]any{
				"caller_name":    str(""),
				"company_name":   str(""),
				"contact_number": str(""),
				"purpose":        str("order_ready, invoice_billing, promotion_partnership or general_business."),
			},
			"purpose"),
	}
}
