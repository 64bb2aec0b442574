package quarry

const (
	AuditRegister         = "REGISTER"
	AuditDeregister       = "DEREGISTER"
	AuditDeconstruct      = "DECONSTRUCT"
	AuditDestroySatellite = "DESTROY_SATELLITE"
	AuditBuildResources   = "BUILD_RESOURCES"
)

// AuditEntry records one quarry lifecycle change. Tick is stamped by the
// owner of the simulation clock; the coordinator leaves it zero.
type AuditEntry struct {
	Tick        uint64          `json:"tick"`
	RegionID    string          `json:"region_id"`
	Action      string          `json:"action"`
	AnchorID    string          `json:"anchor_id,omitempty"`
	StructureID string          `json:"structure_id,omitempty"`
	Pos         [3]int          `json:"pos"`
	Satellites  int             `json:"satellites,omitempty"`
	Resources   []ResourceAudit `json:"resources,omitempty"`
}

type ResourceAudit struct {
	Item        string `json:"item"`
	Base        int    `json:"base"`
	Probability int    `json:"probability"`
}

type AuditSink interface {
	WriteAudit(AuditEntry) error
}

func (c *Coordinator) audit(e AuditEntry) {
	if c.sink == nil {
		return
	}
	e.RegionID = c.regionID
	if err := c.sink.WriteAudit(e); err != nil {
		c.log.WithError(err).WithField("action", e.Action).Warn("quarry audit write failed")
	}
}
