package api

import (
	"net/http"

	"github.com/shaiso/Maestro/internal/plan"
)

// ListPlans возвращает все зарегистрированные планы.
// GET /api/v1/plans
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans := h.plans.All()

	result := make([]PlanResponse, len(plans))
	for i, p := range plans {
		result[i] = PlanFromRegistry(p)
	}

	List(w, result, len(result))
}

// GetPlan возвращает план по имени.
// GET /api/v1/plans/{name}
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	p, err := h.plans.Get(name)
	if err != nil {
		NotFound(w, err.Error())
		return
	}

	Success(w, PlanFromRegistry(p))
}

// ListDevices возвращает все зарегистрированные devices с их протоколами.
// GET /api/v1/devices
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	names := h.devices.Names()

	result := make([]DeviceResponse, 0, len(names))
	for _, name := range names {
		d, err := h.devices.Get(name)
		if err != nil {
			continue
		}
		result = append(result, DeviceResponse{
			Name:      d.Name(),
			Protocols: plan.Protocols(d),
		})
	}

	List(w, result, len(result))
}

// GetDevice возвращает device по имени.
// GET /api/v1/devices/{name}
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	d, err := h.devices.Get(name)
	if err != nil {
		NotFound(w, err.Error())
		return
	}

	Success(w, DeviceResponse{
		Name:      d.Name(),
		Protocols: plan.Protocols(d),
	})
}
