package registry

import (
	"github.com/retrace-dev/retrace/pkg/handlers/assertion"
	"github.com/retrace-dev/retrace/pkg/handlers/click"
	"github.com/retrace-dev/retrace/pkg/handlers/control"
	"github.com/retrace-dev/retrace/pkg/handlers/download"
	"github.com/retrace-dev/retrace/pkg/handlers/drag"
	"github.com/retrace-dev/retrace/pkg/handlers/extract"
	"github.com/retrace-dev/retrace/pkg/handlers/fill"
	"github.com/retrace-dev/retrace/pkg/handlers/frame"
	"github.com/retrace-dev/retrace/pkg/handlers/httprequest"
	"github.com/retrace-dev/retrace/pkg/handlers/keypress"
	"github.com/retrace-dev/retrace/pkg/handlers/navigate"
	"github.com/retrace-dev/retrace/pkg/handlers/screenshot"
	"github.com/retrace-dev/retrace/pkg/handlers/script"
	"github.com/retrace-dev/retrace/pkg/handlers/scrollto"
	"github.com/retrace-dev/retrace/pkg/handlers/tabs"
	"github.com/retrace-dev/retrace/pkg/handlers/waitfor"
)

// RegisterDefaults wires every built-in handler factory into the registry.
func (r *Registry) RegisterDefaults() {
	r.Register(click.NewFactory())
	r.Register(click.NewDoubleFactory())
	r.Register(fill.NewFactory())
	r.Register(keypress.NewFactory())
	r.Register(scrollto.NewFactory())
	r.Register(drag.NewFactory())
	r.Register(navigate.NewFactory())
	r.Register(waitfor.NewFactory())
	r.Register(assertion.NewFactory())
	r.Register(extract.NewFactory())
	r.Register(script.NewFactory())
	r.Register(httprequest.NewFactory())
	r.Register(screenshot.NewFactory())
	r.Register(tabs.NewOpenFactory())
	r.Register(tabs.NewSwitchFactory())
	r.Register(tabs.NewCloseFactory())
	r.Register(download.NewFactory())
	r.Register(frame.NewFactory())
	r.Register(control.NewIfFactory())
	r.Register(control.NewForeachFactory())
	r.Register(control.NewWhileFactory())
	r.Register(control.NewLoopElementsFactory())
	r.Register(control.NewExecuteFlowFactory())
}
