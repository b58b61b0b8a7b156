package config

type AppConfig struct {
	Node NodeConfig
	Log  LogConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	nodeCfg, err := LoadNode()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Node: nodeCfg,
		Log:  logCfg,
	}, nil
}
