package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	&SysOpr{},
	&SysOprLog{},
	&SysScheduler{},
	// CRM
	&Workspace{},
	&KanbanColumn{},
	&Lead{},
	&Flow{},
	&Campaign{},
	&RemarketingSequence{},
	&RemarketingStep{},
	&Product{},
	&Supplier{},
	&Order{},
	&OrderItem{},
	&Bill{},
	&Integration{},
	&Plan{},
	&WhatsappInstance{},
}
