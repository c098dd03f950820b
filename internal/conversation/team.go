package conversation

// Branding controls how artifacts are styled for a team.
type Branding struct {
	FirmName     string `json:"firm_name" yaml:"firm_name" koanf:"firm_name"`
	PrimaryColor string `json:"primary_color" yaml:"primary_color" koanf:"primary_color"`
	LogoURL      string `json:"logo_url" yaml:"logo_url" koanf:"logo_url"`
}

// TeamConfig is the per-team configuration passed into every turn.
type TeamConfig struct {
	TeamID              string   `json:"team_id" yaml:"team_id" koanf:"team_id"`
	Persona             string   `json:"persona" yaml:"persona" koanf:"persona"`
	Branding            Branding `json:"branding" yaml:"branding" koanf:"branding"`
	NotificationWebhook string   `json:"notification_webhook,omitempty" yaml:"notification_webhook" koanf:"notification_webhook"`
	PracticeAreas       []string `json:"practice_areas,omitempty" yaml:"practice_areas" koanf:"practice_areas"`
}
