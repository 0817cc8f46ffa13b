package dependency

import "github.com/hilthontt/nodeline/internal/infrastructure/ws"

func (c *Container) initWebSocket() {
	c.WSCore = ws.NewCore(c.Metrics, c.Logger)
}
