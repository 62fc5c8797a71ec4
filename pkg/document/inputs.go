package document

import "fmt"

// SSHCommandInput runs an arbitrary command on a host over the agent's
// ssh_command action, the action exercised by every end-to-end scenario in
// spec.md section 8.
type SSHCommandInput struct {
	Host    string `yaml:"host"`
	Command string `yaml:"command"`
}

func (i SSHCommandInput) TargetHost() string { return i.Host }

func (i SSHCommandInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Command == "" {
		return fmt.Errorf("command is required")
	}
	return nil
}

// HostRebootInput reboots a host and waits for the agent session to
// re-establish.
type HostRebootInput struct {
	Host string `yaml:"host"`
}

func (i HostRebootInput) TargetHost() string { return i.Host }

func (i HostRebootInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// MgtFormatInput formats a management target device on a host.
type MgtFormatInput struct {
	Host   string `yaml:"host"`
	Device string `yaml:"device"`
}

func (i MgtFormatInput) TargetHost() string { return i.Host }

func (i MgtFormatInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Device == "" {
		return fmt.Errorf("device is required")
	}
	return nil
}

// MdtFormatInput formats a metadata target device on a host, associated
// with a named filesystem.
type MdtFormatInput struct {
	Host       string `yaml:"host"`
	Device     string `yaml:"device"`
	Filesystem string `yaml:"filesystem"`
	Index      int    `yaml:"index"`
}

func (i MdtFormatInput) TargetHost() string { return i.Host }

func (i MdtFormatInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Device == "" {
		return fmt.Errorf("device is required")
	}
	if i.Filesystem == "" {
		return fmt.Errorf("filesystem is required")
	}
	return nil
}

// OstFormatInput formats an object storage target device on a host,
// associated with a named filesystem.
type OstFormatInput struct {
	Host       string `yaml:"host"`
	Device     string `yaml:"device"`
	Filesystem string `yaml:"filesystem"`
	Index      int    `yaml:"index"`
}

func (i OstFormatInput) TargetHost() string { return i.Host }

func (i OstFormatInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Device == "" {
		return fmt.Errorf("device is required")
	}
	if i.Filesystem == "" {
		return fmt.Errorf("filesystem is required")
	}
	return nil
}

// FilesystemCreateInput registers a new Lustre filesystem name against its
// already-formatted MGT/MDT/OST set. The host carries the command: it is
// dispatched to whichever host owns the MGT.
type FilesystemCreateInput struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Mgt  string `yaml:"mgt"`
	Mdts []string `yaml:"mdts"`
	Osts []string `yaml:"osts"`
}

func (i FilesystemCreateInput) TargetHost() string { return i.Host }

func (i FilesystemCreateInput) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Mgt == "" {
		return fmt.Errorf("mgt is required")
	}
	return nil
}

// FilesystemStartInput mounts every target of a named filesystem.
type FilesystemStartInput struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
}

func (i FilesystemStartInput) TargetHost() string { return i.Host }

func (i FilesystemStartInput) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// FilesystemStopInput unmounts every target of a named filesystem.
type FilesystemStopInput struct {
	Name string `yaml:"name"`
	Host string `yaml:"host"`
}

func (i FilesystemStopInput) TargetHost() string { return i.Host }

func (i FilesystemStopInput) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// SnapshotIntervalPolicy snapshots a filesystem on a fixed cadence, keeping
// a bounded window of recent snapshots. One of two non-reconciled snapshot
// policy encodings carried over from the original implementation (spec.md
// section 9, design notes); the core does not reconcile this with
// SnapshotRetentionPolicy, it only carries whichever one a document uses.
type SnapshotIntervalPolicy struct {
	IntervalMinutes int `yaml:"intervalMinutes"`
	KeepLast        int `yaml:"keepLast"`
}

// SnapshotRetentionPolicy snapshots on demand and prunes by calendar-based
// retention rules rather than a fixed count.
type SnapshotRetentionPolicy struct {
	Daily   int `yaml:"daily"`
	Weekly  int `yaml:"weekly"`
	Monthly int `yaml:"monthly"`
}

// SnapshotCreateInput creates a snapshot of a filesystem. At most one of
// Interval/Retention is set; an empty pair means a one-shot, unmanaged
// snapshot.
type SnapshotCreateInput struct {
	Host       string                   `yaml:"host"`
	Filesystem string                   `yaml:"filesystem"`
	Name       string                   `yaml:"name"`
	Interval   *SnapshotIntervalPolicy  `yaml:"interval,omitempty"`
	Retention  *SnapshotRetentionPolicy `yaml:"retention,omitempty"`
}

func (i SnapshotCreateInput) TargetHost() string { return i.Host }

func (i SnapshotCreateInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Filesystem == "" {
		return fmt.Errorf("filesystem is required")
	}
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if i.Interval != nil && i.Retention != nil {
		return fmt.Errorf("interval and retention policies are mutually exclusive")
	}
	return nil
}

// SnapshotDestroyInput removes a previously created snapshot.
type SnapshotDestroyInput struct {
	Host       string `yaml:"host"`
	Filesystem string `yaml:"filesystem"`
	Name       string `yaml:"name"`
}

func (i SnapshotDestroyInput) TargetHost() string { return i.Host }

func (i SnapshotDestroyInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Filesystem == "" {
		return fmt.Errorf("filesystem is required")
	}
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// SnapshotMountInput mounts a read-only snapshot for inspection.
type SnapshotMountInput struct {
	Host       string `yaml:"host"`
	Filesystem string `yaml:"filesystem"`
	Name       string `yaml:"name"`
	MountPoint string `yaml:"mountPoint"`
}

func (i SnapshotMountInput) TargetHost() string { return i.Host }

func (i SnapshotMountInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Filesystem == "" {
		return fmt.Errorf("filesystem is required")
	}
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	if i.MountPoint == "" {
		return fmt.Errorf("mountPoint is required")
	}
	return nil
}

// SnapshotUnmountInput unmounts a previously mounted snapshot.
type SnapshotUnmountInput struct {
	Host       string `yaml:"host"`
	Filesystem string `yaml:"filesystem"`
	Name       string `yaml:"name"`
}

func (i SnapshotUnmountInput) TargetHost() string { return i.Host }

func (i SnapshotUnmountInput) Validate() error {
	if i.Host == "" {
		return fmt.Errorf("host is required")
	}
	if i.Filesystem == "" {
		return fmt.Errorf("filesystem is required")
	}
	if i.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}
