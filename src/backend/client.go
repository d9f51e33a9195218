package backend

import (
	"encoding/json"
	"fmt"
	"strconv"

	"traffic-observer/src/helpers"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/network"
)

// -----------------------------------------------------------------------------
// Client implements the backend REST contract over the network manager.
// Responses are decoded straight into the model structs; mutation responses
// carry the authoritative resource the reconciliation engine applies.
// -----------------------------------------------------------------------------

type Client struct {
	Network *network.AsyncNetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewClient(nm *network.AsyncNetworkManager, log *logger.Logger) *Client {
	return &Client{
		Network: nm,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------
// Auth
// -----------------------------------------------------------------------------

func (c *Client) Login(email, password string) (*models.MToken, error) {
	body, err := json.Marshal(models.MLoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	data, err := c.Network.Post("/auth/login", body)
	if err != nil {
		if helpers.IsAuthError(err) {
			return nil, helpers.NewAuthError("invalid credentials", err)
		}
		return nil, err
	}

	var token models.MToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, helpers.NewProtocolError("decoding login response", err)
	}

	c.Network.SetToken(token.AccessToken)
	return &token, nil
}

// -----------------------------------------------------------------------------

func (c *Client) Logout() error {
	c.Network.ClearToken()
	return nil
}

// -----------------------------------------------------------------------------

func (c *Client) CurrentUser() (*models.MUser, error) {
	data, err := c.Network.Get("/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user models.MUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, helpers.NewProtocolError("decoding current user", err)
	}
	return &user, nil
}

// -----------------------------------------------------------------------------
// Signals
// -----------------------------------------------------------------------------

func (c *Client) GetSignals(zoneID string) ([]models.MSignalView, error) {
	params := map[string]string{}
	if zoneID != "" {
		params["zone_id"] = zoneID
	}

	data, err := c.Network.Get("/signals", params)
	if err != nil {
		return nil, err
	}

	var signals []models.MSignalView
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, helpers.NewProtocolError("decoding signals", err)
	}
	return signals, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetSignal(id string) (*models.MSignalView, error) {
	data, err := c.Network.Get("/signals/"+id, nil)
	if err != nil {
		return nil, err
	}

	var signal models.MSignalView
	if err := json.Unmarshal(data, &signal); err != nil {
		return nil, helpers.NewProtocolError("decoding signal", err)
	}
	return &signal, nil
}

// -----------------------------------------------------------------------------

func (c *Client) UpdateSignal(id string, fields map[string]any) (*models.MSignalView, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	data, err := c.Network.Put("/signals/"+id, body)
	if err != nil {
		if helpers.IsAuthError(err) {
			return nil, err
		}
		return nil, helpers.NewCommandError(fmt.Sprintf("updating signal %s", id), err)
	}

	var signal models.MSignalView
	if err := json.Unmarshal(data, &signal); err != nil {
		return nil, helpers.NewProtocolError("decoding updated signal", err)
	}
	return &signal, nil
}

// -----------------------------------------------------------------------------

func (c *Client) UpdateSignalTiming(id string, timing models.MTimingUpdate) (*models.MSignalView, error) {
	body, err := json.Marshal(timing)
	if err != nil {
		return nil, err
	}

	data, err := c.Network.Put("/signals/"+id+"/timing", body)
	if err != nil {
		if helpers.IsAuthError(err) {
			return nil, err
		}
		return nil, helpers.NewCommandError(fmt.Sprintf("updating timing for signal %s", id), err)
	}

	var signal models.MSignalView
	if err := json.Unmarshal(data, &signal); err != nil {
		return nil, helpers.NewProtocolError("decoding updated signal", err)
	}
	return &signal, nil
}

// -----------------------------------------------------------------------------
// Traffic
// -----------------------------------------------------------------------------

func (c *Client) GetTrafficStats(zoneID string) (*models.MTrafficStats, error) {
	params := map[string]string{}
	if zoneID != "" {
		params["zone_id"] = zoneID
	}

	data, err := c.Network.Get("/traffic/stats", params)
	if err != nil {
		return nil, err
	}

	var stats models.MTrafficStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, helpers.NewProtocolError("decoding traffic stats", err)
	}
	return &stats, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetTrafficHistory(start, end, zoneID string) ([]models.MTrafficLogPoint, error) {
	params := map[string]string{}
	if start != "" {
		params["start"] = start
	}
	if end != "" {
		params["end"] = end
	}
	if zoneID != "" {
		params["zone_id"] = zoneID
	}

	data, err := c.Network.Get("/traffic/history", params)
	if err != nil {
		return nil, err
	}

	var points []models.MTrafficLogPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, helpers.NewProtocolError("decoding traffic history", err)
	}
	return points, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetPredictions(hours int, zoneID string) ([]models.MTrafficLogPoint, error) {
	params := map[string]string{"hours": strconv.Itoa(hours)}
	if zoneID != "" {
		params["zone_id"] = zoneID
	}

	data, err := c.Network.Get("/traffic/predictions", params)
	if err != nil {
		return nil, err
	}

	var points []models.MTrafficLogPoint
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, helpers.NewProtocolError("decoding predictions", err)
	}
	return points, nil
}

// -----------------------------------------------------------------------------
// Zones / operators
// -----------------------------------------------------------------------------

func (c *Client) GetZones() ([]models.MZone, error) {
	data, err := c.Network.Get("/zones", nil)
	if err != nil {
		return nil, err
	}

	var zones []models.MZone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, helpers.NewProtocolError("decoding zones", err)
	}
	return zones, nil
}

// -----------------------------------------------------------------------------

func (c *Client) CreateZone(zone models.MZone) (*models.MZone, error) {
	body, err := json.Marshal(zone)
	if err != nil {
		return nil, err
	}

	data, err := c.Network.Post("/zones", body)
	if err != nil {
		return nil, err
	}

	var created models.MZone
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, helpers.NewProtocolError("decoding created zone", err)
	}
	return &created, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetOperators() ([]models.MOperator, error) {
	data, err := c.Network.Get("/operators", nil)
	if err != nil {
		return nil, err
	}

	var ops []models.MOperator
	if err := json.Unmarshal(data, &ops); err != nil {
		return nil, helpers.NewProtocolError("decoding operators", err)
	}
	return ops, nil
}

// -----------------------------------------------------------------------------

func (c *Client) CreateOperator(op models.MOperator, password string) (*models.MOperator, error) {
	payload := map[string]any{
		"email":    op.Email,
		"name":     op.Name,
		"role":     op.Role,
		"password": password,
	}
	if op.ZoneID != "" {
		payload["zone_id"] = op.ZoneID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	data, err := c.Network.Post("/operators", body)
	if err != nil {
		return nil, err
	}

	var created models.MOperator
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, helpers.NewProtocolError("decoding created operator", err)
	}
	return &created, nil
}

// -----------------------------------------------------------------------------

func (c *Client) AssignOperatorZone(operatorID, zoneID string) (*models.MOperator, error) {
	body, err := json.Marshal(map[string]string{"zone_id": zoneID})
	if err != nil {
		return nil, err
	}

	data, err := c.Network.Put("/operators/"+operatorID+"/zone", body)
	if err != nil {
		return nil, err
	}

	var op models.MOperator
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, helpers.NewProtocolError("decoding operator", err)
	}
	return &op, nil
}

// -----------------------------------------------------------------------------
// Emergency
// -----------------------------------------------------------------------------

func (c *Client) CreateEmergencyRoute(req models.MEmergencyRouteCreate) (*models.MEmergencyRoute, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	data, err := c.Network.Post("/emergency/routes", body)
	if err != nil {
		if helpers.IsAuthError(err) {
			return nil, err
		}
		return nil, helpers.NewCommandError("creating emergency route", err)
	}

	var route models.MEmergencyRoute
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, helpers.NewProtocolError("decoding emergency route", err)
	}
	return &route, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetActiveEmergencyRoutes() ([]models.MEmergencyRoute, error) {
	data, err := c.Network.Get("/emergency/routes/active", nil)
	if err != nil {
		return nil, err
	}

	var routes []models.MEmergencyRoute
	if err := json.Unmarshal(data, &routes); err != nil {
		return nil, helpers.NewProtocolError("decoding emergency routes", err)
	}
	return routes, nil
}

// -----------------------------------------------------------------------------

func (c *Client) DeactivateEmergencyRoute(id string) (*models.MEmergencyRoute, error) {
	data, err := c.Network.Put("/emergency/routes/"+id+"/deactivate", nil)
	if err != nil {
		if helpers.IsAuthError(err) {
			return nil, err
		}
		return nil, helpers.NewCommandError(fmt.Sprintf("deactivating route %s", id), err)
	}

	var route models.MEmergencyRoute
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, helpers.NewProtocolError("decoding emergency route", err)
	}
	return &route, nil
}

// -----------------------------------------------------------------------------
// Realtime reference feeds
// -----------------------------------------------------------------------------

func (c *Client) GetTrafficPattern() (*models.MLiveContext, error) {
	data, err := c.Network.Get("/realtime/traffic-pattern", nil)
	if err != nil {
		return nil, err
	}

	var ctx models.MLiveContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, helpers.NewProtocolError("decoding traffic pattern", err)
	}
	return &ctx, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetWeather() (*models.MLiveContext, error) {
	data, err := c.Network.Get("/realtime/weather", nil)
	if err != nil {
		return nil, err
	}

	var ctx models.MLiveContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, helpers.NewProtocolError("decoding weather", err)
	}
	return &ctx, nil
}

// -----------------------------------------------------------------------------

func (c *Client) GetRoadCongestion() (*models.MRoadCongestionPayload, error) {
	data, err := c.Network.Get("/realtime/road-congestion", nil)
	if err != nil {
		return nil, err
	}

	var payload models.MRoadCongestionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, helpers.NewProtocolError("decoding road congestion", err)
	}
	return &payload, nil
}
