package document

import "gopkg.in/yaml.v3"

// decoder unmarshals a step's raw `inputs` YAML node into the concrete
// Input variant registered for an ActionRef.
type decoder func(node *yaml.Node) (Input, error)

var registry = map[ActionRef]decoder{}

// register binds a decoder to an ActionRef. Called from this package's
// init so the registry is fully populated before any Parse call.
func register(component, action string, dec decoder) {
	registry[ActionRef{Component: component, Action: action}] = dec
}

func decodeInto[T Input](node *yaml.Node) (Input, error) {
	var v T
	if node != nil {
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func init() {
	register("host", "ssh_command", decodeInto[SSHCommandInput])
	register("host", "reboot", decodeInto[HostRebootInput])
	register("mgt", "format", decodeInto[MgtFormatInput])
	register("mdt", "format", decodeInto[MdtFormatInput])
	register("ost", "format", decodeInto[OstFormatInput])
	register("filesystem", "create", decodeInto[FilesystemCreateInput])
	register("filesystem", "start", decodeInto[FilesystemStartInput])
	register("filesystem", "stop", decodeInto[FilesystemStopInput])
	register("snapshot", "create", decodeInto[SnapshotCreateInput])
	register("snapshot", "destroy", decodeInto[SnapshotDestroyInput])
	register("snapshot", "mount", decodeInto[SnapshotMountInput])
	register("snapshot", "unmount", decodeInto[SnapshotUnmountInput])
}

// lookup returns the decoder registered for ref, or false if the
// (component, action) pair is unknown.
func lookup(ref ActionRef) (decoder, bool) {
	dec, ok := registry[ref]
	return dec, ok
}

// KnownActions returns every registered (component, action) pair; sorting
// is left to the caller.
func KnownActions() []ActionRef {
	refs := make([]ActionRef, 0, len(registry))
	for ref := range registry {
		refs = append(refs, ref)
	}
	return refs
}
