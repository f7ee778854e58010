package casefile

func floatPtr(v float64) *float64 { return &v }

// DefaultRegistry returns the built-in field catalog: every logical field
// collected across the discovery process, with its canonical storage
// location, known duplicates, and auto-population flags.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Field{
			ID:          "crm_system",
			Label:       "CRM System",
			Type:        FieldSelect,
			Category:    CategoryCRM,
			CollectedIn: []CollectionPhase{CollectedInDiscovery, CollectedInSpec},
			UsedBy: []string{
				"auto-form-to-crm",
				"auto-crm-update",
				"auto-lead-response",
				"auto-data-sync",
				"int-crm-marketing",
				"int-crm-support",
				"impl-crm",
				"ai-lead-qualifier",
				"ai-action-agent",
				"ai-full-integration",
			},
			PrimarySource: FieldLocation{
				Path:        "modules.overview.crmName",
				Phase:       CollectedInDiscovery,
				Module:      "overview",
				Description: "CRM system name from the overview module",
			},
			SecondarySources: []FieldLocation{
				{
					Path:        "modules.systems.detailedSystems[].specificSystem",
					Phase:       CollectedInDiscovery,
					Module:      "systems",
					Description: "Detailed CRM system from the systems module",
				},
			},
			AutoPopulate:      true,
			SyncBidirectional: true,
			Importance:        ImportanceCritical,
			Options: []FieldOption{
				{Value: "zoho", Label: "Zoho CRM"},
				{Value: "salesforce", Label: "Salesforce"},
				{Value: "hubspot", Label: "HubSpot"},
				{Value: "pipedrive", Label: "Pipedrive"},
				{Value: "monday", Label: "Monday CRM"},
				{Value: "other", Label: "Other"},
			},
		},
		Field{
			ID:          "crm_auth_method",
			Label:       "CRM Authentication Method",
			Type:        FieldSelect,
			Category:    CategoryAuthentication,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy: []string{
				"auto-form-to-crm",
				"auto-crm-update",
				"auto-lead-response",
				"int-crm-marketing",
			},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.systemImplementations[].requirements.authentication.method",
				Phase:       CollectedInSpec,
				Description: "CRM authentication method from the system deep dive",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Validation:        &Validation{Required: true},
			Importance:        ImportanceCritical,
			Options: []FieldOption{
				{Value: "oauth", Label: "OAuth 2.0"},
				{Value: "api_key", Label: "API Key"},
				{Value: "basic_auth", Label: "Basic Auth"},
				{Value: "jwt", Label: "JWT Token"},
			},
		},
		Field{
			ID:          "crm_module",
			Label:       "CRM Module",
			Type:        FieldSelect,
			Category:    CategoryCRM,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy:      []string{"auto-form-to-crm", "auto-crm-update", "auto-lead-response"},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.automations[].requirements.crmAccess.module",
				Phase:       CollectedInSpec,
				Description: "CRM module from automation requirements",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Validation:        &Validation{Required: true},
			Importance:        ImportanceHigh,
			Options: []FieldOption{
				{Value: "leads", Label: "Leads"},
				{Value: "contacts", Label: "Contacts"},
				{Value: "potentials", Label: "Potentials/Deals"},
				{Value: "accounts", Label: "Accounts"},
			},
		},
		Field{
			ID:          "email_provider",
			Label:       "Email Service Provider",
			Type:        FieldSelect,
			Category:    CategoryEmail,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy: []string{
				"auto-lead-response",
				"auto-email-templates",
				"auto-welcome-email",
				"auto-notifications",
			},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.automations[].requirements.emailServiceAccess.provider",
				Phase:       CollectedInSpec,
				Description: "Email provider from automation requirements",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Validation:        &Validation{Required: true},
			Importance:        ImportanceHigh,
			Options: []FieldOption{
				{Value: "sendgrid", Label: "SendGrid"},
				{Value: "mailgun", Label: "Mailgun"},
				{Value: "smtp", Label: "SMTP"},
				{Value: "gmail", Label: "Gmail API"},
				{Value: "outlook", Label: "Outlook/Office 365"},
				{Value: "other", Label: "Other"},
			},
		},
		Field{
			ID:          "email_daily_limit",
			Label:       "Daily Email Limit",
			Type:        FieldNumber,
			Category:    CategoryEmail,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy:      []string{"auto-lead-response", "auto-email-templates", "auto-notifications"},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.automations[].requirements.emailServiceAccess.rateLimits.daily",
				Phase:       CollectedInSpec,
				Description: "Daily email rate limit",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Validation: &Validation{
				Min: floatPtr(0),
				Max: floatPtr(1000000),
			},
			Importance: ImportanceMedium,
		},
		Field{
			ID:          "form_platform",
			Label:       "Form Platform",
			Type:        FieldSelect,
			Category:    CategoryForms,
			CollectedIn: []CollectionPhase{CollectedInDiscovery, CollectedInSpec},
			UsedBy:      []string{"auto-form-to-crm", "auto-lead-response"},
			PrimarySource: FieldLocation{
				Path:        "modules.leadsAndSales.leadSources[].channel",
				Phase:       CollectedInDiscovery,
				Module:      "leadsAndSales",
				Description: "Form platform from lead sources",
			},
			AutoPopulate:      true,
			SyncBidirectional: false,
			Validation:        &Validation{Required: true},
			Importance:        ImportanceHigh,
			Options: []FieldOption{
				{Value: "wix", Label: "Wix Forms"},
				{Value: "wordpress", Label: "WordPress"},
				{Value: "elementor", Label: "Elementor"},
				{Value: "google_forms", Label: "Google Forms"},
				{Value: "typeform", Label: "Typeform"},
				{Value: "jotform", Label: "JotForm"},
				{Value: "custom", Label: "Custom"},
			},
		},
		Field{
			ID:          "form_webhook_capability",
			Label:       "Webhook Support",
			Type:        FieldBoolean,
			Category:    CategoryForms,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy:      []string{"auto-form-to-crm", "auto-lead-response"},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.automations[].requirements.formPlatformAccess.webhookCapability",
				Phase:       CollectedInSpec,
				Description: "Form platform webhook capability",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Importance:        ImportanceMedium,
		},
		Field{
			ID:          "lead_volume_monthly",
			Label:       "Monthly Lead Volume",
			Type:        FieldNumber,
			Category:    CategoryBusiness,
			CollectedIn: []CollectionPhase{CollectedInDiscovery},
			UsedBy:      []string{"auto-lead-response", "ai-lead-qualifier"},
			PrimarySource: FieldLocation{
				Path:        "modules.leadsAndSales.leadSources[].volumePerMonth",
				Phase:       CollectedInDiscovery,
				Module:      "leadsAndSales",
				Description: "Total lead volume across all lead sources",
			},
			AutoPopulate:      true,
			SyncBidirectional: false,
			Validation: &Validation{
				Min: floatPtr(0),
			},
			Importance: ImportanceHigh,
		},
		Field{
			ID:          "api_auth_method",
			Label:       "API Authentication Method",
			Type:        FieldSelect,
			Category:    CategoryAuthentication,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy:      []string{"int-simple", "int-complex", "int-calendar", "int-crm-marketing", "impl-crm"},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.integrationServices[].requirements.authMethod",
				Phase:       CollectedInSpec,
				Description: "API authentication method",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Validation:        &Validation{Required: true},
			Importance:        ImportanceCritical,
			Options: []FieldOption{
				{Value: "oauth", Label: "OAuth 2.0"},
				{Value: "api_key", Label: "API Key"},
				{Value: "basic_auth", Label: "Basic Auth"},
				{Value: "bearer_token", Label: "Bearer Token"},
				{Value: "jwt", Label: "JWT"},
			},
		},
		Field{
			ID:          "api_endpoint_url",
			Label:       "API Endpoint URL",
			Type:        FieldURL,
			Category:    CategoryTechnical,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy:      []string{"int-simple", "int-complex", "int-calendar", "whatsapp-api-setup"},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.integrationServices[].requirements.endpointUrl",
				Phase:       CollectedInSpec,
				Description: "API endpoint URL",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Validation: &Validation{
				Required: true,
				Pattern:  `^https?://.+`,
			},
			Importance: ImportanceCritical,
		},
		Field{
			ID:          "workflow_trigger",
			Label:       "Workflow Trigger",
			Type:        FieldSelect,
			Category:    CategoryWorkflow,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy: []string{
				"auto-service-workflow",
				"auto-lead-workflow",
				"auto-approval-workflow",
				"auto-complex-logic",
			},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.automations[].requirements.trigger",
				Phase:       CollectedInSpec,
				Description: "What triggers the workflow",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Validation:        &Validation{Required: true},
			Importance:        ImportanceHigh,
			Options: []FieldOption{
				{Value: "webhook", Label: "Webhook"},
				{Value: "schedule", Label: "Schedule"},
				{Value: "event", Label: "Event"},
				{Value: "manual", Label: "Manual"},
				{Value: "api_call", Label: "API Call"},
			},
		},
		Field{
			ID:          "duplicate_detection_field",
			Label:       "Duplicate Detection Field",
			Type:        FieldSelect,
			Category:    CategoryTechnical,
			CollectedIn: []CollectionPhase{CollectedInSpec},
			UsedBy:      []string{"auto-form-to-crm", "auto-lead-response", "auto-data-sync"},
			PrimarySource: FieldLocation{
				Path:        "implementationSpec.automations[].requirements.duplicateDetectionField",
				Phase:       CollectedInSpec,
				Description: "Field used for duplicate detection",
			},
			AutoPopulate:      false,
			SyncBidirectional: true,
			Importance:        ImportanceHigh,
			Options: []FieldOption{
				{Value: "email", Label: "Email"},
				{Value: "phone", Label: "Phone"},
				{Value: "email_and_phone", Label: "Email + Phone"},
				{Value: "custom", Label: "Custom Field"},
			},
		},
	)
}
