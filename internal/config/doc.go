/*
Package config loads and validates unionmountd's configuration: the two
backing tiers, the mount options presented to the kernel, and the
capacities of the bounded structures the mount design depends on.

# Precedence

	Environment variables (UNIONMOUNTD_*)   ← highest priority
	YAML configuration file
	Default() compiled-in defaults          ← lowest priority

Typical startup sequence:

	cfg := config.Default()
	if err := cfg.LoadFromFile(path); err != nil {
		log.Fatal(err)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

# Configuration file format

	mount:
	  mount_path: /mnt/union
	  local_dir: /var/lib/unionmountd/local
	  external_dir: /media/external
	  allow_other: false
	  fs_name: unionmount
	  entry_timeout: 1s
	  attr_timeout: 1s
	  negative_timeout: 1s

	limits:
	  max_open_handles: 256
	  evicting_capacity: 256
	  pending_capacity: 1024
	  syncing_capacity: 1024
	  notify_ring_size: 4096
	  max_path_depth: 40

	logging:
	  level: INFO
	  log_file: ""
	  metrics_addr: ":9090"

external_dir may be left empty to run with the local tier only (offline
mode); mount_path and local_dir are required.
*/
package config
