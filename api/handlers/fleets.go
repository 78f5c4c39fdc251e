package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
	"github.com/gin-gonic/gin"
)

// Governor exposes the live controller state the API reads from.
// Fleets are static configuration, so the surface is read-only.
type Governor interface {
	Fleets() []models.Fleet
	FleetRunning(fleetID string) bool
	Capacity(ctx context.Context, fleetID string) (*models.FleetCapacity, error)
	Cooldown(fleetID string) (models.CooldownState, bool)
	CooldownRemaining(fleetID string) time.Duration
	ScheduleState() string
	SubscribeAllEvents() <-chan *models.Event
}

type FleetHandler struct {
	governor Governor
}

func NewFleetHandler(governor Governor) *FleetHandler {
	return &FleetHandler{governor: governor}
}

type FleetResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	GroupName    string `json:"group_name"`
	MinInstances int    `json:"min_instances"`
	MaxInstances int    `json:"max_instances"`
	Schedulable  bool   `json:"schedulable"`
	Running      bool   `json:"running"`
}

func (h *FleetHandler) List(c *gin.Context) {
	fleets := h.governor.Fleets()

	response := make([]FleetResponse, len(fleets))
	for i, fleet := range fleets {
		response[i] = FleetResponse{
			ID:           fleet.ID,
			Name:         fleet.Name,
			GroupName:    fleet.GroupName,
			MinInstances: fleet.MinInstances,
			MaxInstances: fleet.MaxInstances,
			Schedulable:  fleet.Schedulable,
			Running:      h.governor.FleetRunning(fleet.ID),
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"fleets": response,
		"count":  len(response),
	})
}

func (h *FleetHandler) Get(c *gin.Context) {
	id := c.Param("id")

	for _, fleet := range h.governor.Fleets() {
		if fleet.ID == id {
			c.JSON(http.StatusOK, FleetResponse{
				ID:           fleet.ID,
				Name:         fleet.Name,
				GroupName:    fleet.GroupName,
				MinInstances: fleet.MinInstances,
				MaxInstances: fleet.MaxInstances,
				Schedulable:  fleet.Schedulable,
				Running:      h.governor.FleetRunning(fleet.ID),
			})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": "fleet not found"})
}

func (h *FleetHandler) GetStatus(c *gin.Context) {
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	capacity, err := h.governor.Capacity(ctx, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "fleet not found or capacity unavailable"})
		return
	}

	status := gin.H{
		"fleet_id": id,
		"running":  h.governor.FleetRunning(id),
		"capacity": gin.H{
			"min":     capacity.Min,
			"max":     capacity.Max,
			"desired": capacity.Desired,
			"current": capacity.Current,
		},
		"schedule_state": h.governor.ScheduleState(),
	}

	if cooldown, ok := h.governor.Cooldown(id); ok {
		status["cooldown"] = gin.H{
			"last_action_at":        cooldown.LastActionAt,
			"last_action_direction": cooldown.LastActionDirection,
			"remaining_seconds":     h.governor.CooldownRemaining(id).Seconds(),
		}
	}

	c.JSON(http.StatusOK, status)
}
