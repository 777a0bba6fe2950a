package render

import "sitegen/internal/domain/config"

type Heading struct {
	Level int
	Text  string
}

// HeadView is the data handed to head.tmpl and foot.tmpl.
type HeadView struct {
	Site config.SiteConfig
}
