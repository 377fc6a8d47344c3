// ABOUTME: Static tool catalog for the four infrastructure backend kinds
// ABOUTME: Descriptors only - field semantics belong to the vendor adapters

package catalog

import (
	"github.com/stackmesh/infragate/internal/backend"
	"github.com/stackmesh/infragate/internal/registry"
)

// Descriptors returns the built-in tool descriptors for one backend kind.
// Returns nil for unknown kinds. Descriptors are value copies; callers may
// not mutate the catalog.
func Descriptors(kind backend.Kind) []registry.Descriptor {
	switch kind {
	case backend.KindStorage:
		return storageTools()
	case backend.KindFirewall:
		return firewallTools()
	case backend.KindBMC:
		return bmcTools()
	case backend.KindHypervisor:
		return hypervisorTools()
	}
	return nil
}

func storageTools() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "storage_list_pools",
			Description: "List storage pools with capacity and health status",
			Backend:     backend.KindStorage,
		},
		{
			Name:        "storage_list_datasets",
			Description: "List datasets within a pool",
			Backend:     backend.KindStorage,
			Params: []registry.Param{
				{Name: "pool", Type: "string", Required: true, Description: "Pool name"},
			},
		},
		{
			Name:        "storage_create_dataset",
			Description: "Create a dataset in a pool",
			Backend:     backend.KindStorage,
			Params: []registry.Param{
				{Name: "pool", Type: "string", Required: true, Description: "Pool name"},
				{Name: "name", Type: "string", Required: true, Description: "Dataset name"},
				{Name: "quota", Type: "string", Required: false, Description: "Optional quota, e.g. 100G"},
			},
		},
		{
			Name:        "storage_create_snapshot",
			Description: "Snapshot a dataset",
			Backend:     backend.KindStorage,
			Params: []registry.Param{
				{Name: "dataset", Type: "string", Required: true, Description: "Full dataset path"},
				{Name: "name", Type: "string", Required: true, Description: "Snapshot name"},
				{Name: "recursive", Type: "boolean", Required: false, Description: "Include child datasets"},
			},
		},
	}
}

func firewallTools() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "firewall_list_rules",
			Description: "List firewall rules, optionally filtered by interface",
			Backend:     backend.KindFirewall,
			Params: []registry.Param{
				{Name: "interface", Type: "string", Required: false, Description: "Interface name filter"},
			},
		},
		{
			Name:        "firewall_add_rule",
			Description: "Add a firewall rule",
			Backend:     backend.KindFirewall,
			Params: []registry.Param{
				{Name: "action", Type: "string", Required: true, Description: "pass or block"},
				{Name: "interface", Type: "string", Required: true, Description: "Interface name"},
				{Name: "source", Type: "string", Required: true, Description: "Source address or alias"},
				{Name: "destination", Type: "string", Required: true, Description: "Destination address or alias"},
				{Name: "port", Type: "integer", Required: false, Description: "Destination port"},
				{Name: "description", Type: "string", Required: false, Description: "Rule description"},
			},
		},
		{
			Name:        "firewall_delete_rule",
			Description: "Delete a firewall rule by UUID",
			Backend:     backend.KindFirewall,
			Params: []registry.Param{
				{Name: "uuid", Type: "string", Required: true, Description: "Rule UUID"},
			},
		},
		{
			Name:        "firewall_apply",
			Description: "Apply pending firewall changes",
			Backend:     backend.KindFirewall,
		},
	}
}

func bmcTools() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "bmc_power_status",
			Description: "Report chassis power state for a server",
			Backend:     backend.KindBMC,
			Params: []registry.Param{
				{Name: "server", Type: "string", Required: true, Description: "Server identifier"},
			},
		},
		{
			Name:        "bmc_power_action",
			Description: "Perform a chassis power action",
			Backend:     backend.KindBMC,
			Params: []registry.Param{
				{Name: "server", Type: "string", Required: true, Description: "Server identifier"},
				{Name: "action", Type: "string", Required: true, Description: "on, off, cycle, or reset"},
			},
		},
		{
			Name:        "bmc_sensor_readings",
			Description: "Read temperature, fan, and voltage sensors",
			Backend:     backend.KindBMC,
			Params: []registry.Param{
				{Name: "server", Type: "string", Required: true, Description: "Server identifier"},
			},
		},
	}
}

func hypervisorTools() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "hv_list_vms",
			Description: "List virtual machines with state and resource usage",
			Backend:     backend.KindHypervisor,
			Params: []registry.Param{
				{Name: "node", Type: "string", Required: false, Description: "Restrict to one node"},
			},
		},
		{
			Name:        "hv_vm_action",
			Description: "Start, stop, or reboot a virtual machine",
			Backend:     backend.KindHypervisor,
			Params: []registry.Param{
				{Name: "vmid", Type: "integer", Required: true, Description: "VM identifier"},
				{Name: "action", Type: "string", Required: true, Description: "start, stop, or reboot"},
			},
		},
		{
			Name:        "hv_vm_snapshot",
			Description: "Snapshot a virtual machine",
			Backend:     backend.KindHypervisor,
			Params: []registry.Param{
				{Name: "vmid", Type: "integer", Required: true, Description: "VM identifier"},
				{Name: "name", Type: "string", Required: true, Description: "Snapshot name"},
				{Name: "include_memory", Type: "boolean", Required: false, Description: "Capture RAM state"},
			},
		},
	}
}
