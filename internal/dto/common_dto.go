package dto

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}

type DashboardStats struct {
	TotalTasks            int64            `json:"total_tasks"`
	TasksByStatus         map[string]int64 `json:"tasks_by_status"`
	TasksOverdue          int64            `json:"tasks_overdue"`
	TotalStockItems       int64            `json:"total_stock_items"`
	LowStockItems         int64            `json:"low_stock_items"`
	TotalAppointments     int64            `json:"total_appointments"`
	UpcomingAppointments  int64            `json:"upcoming_appointments"`
	AppointmentsNext3Days int64            `json:"appointments_next_3_days"`
}
