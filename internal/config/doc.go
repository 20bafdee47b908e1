// Package config provides configuration management for the ovsnap CLI.
//
// # Configuration File
//
// The configuration file is config.yaml, searched in $OVSNAP_CONFIG_DIR,
// the current directory and ~/.config/ovsnap, in that order:
//
//	version: 1
//	roots: [/etc/openvpn, /etc/iptables, /root]
//	output_dir: /root/backups
//	archive_dirs: [/root]
//	exclude:
//	  paths: [/root/.bash_history, /root/.cache, /root/backups/.tmp]
//	  suffixes: [.pyc, .log, .swp]
//	strict_purge: true
//	retention: 5
//	pki:
//	  easyrsa_dir: /etc/openvpn/easy-rsa
//	  auto_regen_crl: true
//	  crl_days: 3650
//	  crl_dest: /etc/openvpn/crl.pem
//	service:
//	  restart: true
//	  units: [openvpn@server, openvpn]
//
// Every key can be overridden from the environment with the OVSNAP_ prefix
// and dots replaced by underscores, e.g. OVSNAP_PKI_CRL_DAYS=30.
//
// # Loading Configuration
//
//	config.Init()
//	cfg, err := config.Load("") // search paths, defaults if absent
//
// Load validates the result; see [Validate] for the rules.
package config
