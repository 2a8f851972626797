// Package mesh defines DeviceMesh, the logical topology of the devices a
// sharding distributes tiles over.
//
// A mesh arranges the device set into a named-axis grid (e.g. 2x4 over axes
// "data" and "model"). It doesn't decide how tensors are partitioned -- that
// is the sharding package's job -- but it is the usual source of the dense
// device grids that tiled shardings are built from: see
// DeviceMesh.DeviceAssignment.
package mesh

import (
	"fmt"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/gomlx/sharding/internal/sets"
	"github.com/gomlx/sharding/types/ndarray"
)

// DeviceMesh defines the logical topology of a set of devices.
type DeviceMesh struct {
	name string

	// axesNames are the names of the mesh axes.
	axesNames []string

	// axesSizes defines the number of devices along each mesh axis.
	axesSizes []int

	// nameToAxis maps axis names to their index.
	nameToAxis map[string]int

	// numDevices is the total number of devices in the mesh.
	numDevices int

	// logicalDeviceAssignment is the list of "logical" device numbers in the
	// mesh, in the order they appear in the mesh (row-major).
	logicalDeviceAssignment []int
}

const DefaultMeshName = "mesh"

// IsNameValid checks whether a name is a valid identifier for a mesh name or axis name.
func IsNameValid(name string) bool {
	if name == "" {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return false
	}
	return true
}

// New creates a new logical topology of a set of devices.
//
//   - axesSizes: defines the number of devices along each mesh axis, one value per axis.
//   - axesNames: the names of the mesh axes, one value per axis.
//
// The default mapping of logical device numbers to the mesh is row-major
// sequential, starting from 0; it can be changed with
// SetLogicalDeviceAssignment.
//
// A DeviceMesh can also be assigned a name, but because there is usually only
// one mesh, it defaults to "mesh" (DefaultMeshName).
func New(axesSizes []int, axesNames []string) (*DeviceMesh, error) {
	if len(axesSizes) != len(axesNames) {
		return nil, errors.Errorf("axesSizes and axesNames must have the same length, got %d and %d",
			len(axesSizes), len(axesNames))
	}
	if len(axesSizes) == 0 {
		return nil, errors.New("DeviceMesh axesSizes cannot be empty")
	}

	axesNames = slices.Clone(axesNames)
	for i, axisName := range axesNames {
		if !IsNameValid(axisName) {
			return nil, errors.Errorf(
				"DeviceMesh axis name %q at index %d is not a valid identifier, it must start with an ASCII "+
					"letter and be followed only by letters, numbers or underscore", axisName, i)
		}
	}

	numDevices := 1
	nameToAxis := make(map[string]int, len(axesSizes))
	for i, name := range axesNames {
		if _, found := nameToAxis[name]; found {
			return nil, errors.Errorf("DeviceMesh axis name %q is duplicated", name)
		}
		if axesSizes[i] <= 0 {
			return nil, errors.Errorf("DeviceMesh axis %q must have a positive size, got %d", name, axesSizes[i])
		}
		nameToAxis[name] = i
		numDevices *= axesSizes[i]
	}

	m := &DeviceMesh{
		name:       DefaultMeshName,
		axesNames:  axesNames,
		axesSizes:  slices.Clone(axesSizes),
		nameToAxis: nameToAxis,
		numDevices: numDevices,
	}
	return m, nil
}

// SetName of the mesh.
func (m *DeviceMesh) SetName(name string) {
	m.name = name
}

// Name returns the mesh name.
func (m *DeviceMesh) Name() string {
	return m.name
}

// NumDevices returns the total number of devices in the mesh.
func (m *DeviceMesh) NumDevices() int {
	return m.numDevices
}

// Rank returns the number of axes in the mesh.
func (m *DeviceMesh) Rank() int {
	return len(m.axesSizes)
}

// AxesNames returns a copy of the mesh's axis names.
func (m *DeviceMesh) AxesNames() []string {
	return slices.Clone(m.axesNames)
}

// AxesSizes returns a copy of the mesh's axes sizes.
func (m *DeviceMesh) AxesSizes() []int {
	return slices.Clone(m.axesSizes)
}

// AxisSize returns the number of devices along the given mesh axis.
func (m *DeviceMesh) AxisSize(axisName string) (int, error) {
	idx, found := m.nameToAxis[axisName]
	if !found {
		return 0, errors.Errorf("mesh axis %q not found", axisName)
	}
	return m.axesSizes[idx], nil
}

// String implements the fmt.Stringer interface.
func (m *DeviceMesh) String() string {
	var sb strings.Builder
	sb.WriteString("DeviceMesh(axesSizes={")
	for i, name := range m.axesNames {
		if i > 0 {
			sb.WriteString(", ")
		}
		_, _ = fmt.Fprintf(&sb, "%s: %d", name, m.axesSizes[i])
	}
	sb.WriteString("})")
	return sb.String()
}

// SetLogicalDeviceAssignment sets the assignment of logical devices to the mesh.
//
// The length of devices must be equal to NumDevices(), and it should include
// all numbers from 0 to NumDevices()-1.
//
// It returns an error if devices has invalid or duplicated device numbers or
// len(devices) != NumDevices().
func (m *DeviceMesh) SetLogicalDeviceAssignment(devices ...int) error {
	if len(devices) == 0 {
		m.logicalDeviceAssignment = nil
		return nil
	}
	if len(devices) != m.numDevices {
		return errors.Errorf("devices must have %d elements, got %d", m.numDevices, len(devices))
	}
	seen := sets.Make[int](m.numDevices)
	for _, device := range devices {
		if seen.Has(device) {
			return errors.Errorf("physical device #%d is duplicated in mapping", device)
		}
		seen.Insert(device)
		if device < 0 || device >= m.numDevices {
			return errors.Errorf("devices must be between 0 and %d (NumDevices()-1), got device %d",
				m.numDevices-1, device)
		}
	}
	m.logicalDeviceAssignment = slices.Clone(devices)
	return nil
}

// LogicalDeviceAssignment returns the list of devices in the mesh, in the
// order they appear in the mesh.
//
// It can return nil if no assignment was set with SetLogicalDeviceAssignment,
// in which case it defaults to a sequential assignment starting from 0.
func (m *DeviceMesh) LogicalDeviceAssignment() []int {
	if m.logicalDeviceAssignment == nil {
		return nil
	}
	return slices.Clone(m.logicalDeviceAssignment)
}

// DeviceAssignment returns the mesh's device grid as a dense array: one
// dimension per mesh axis (sized by AxesSizes) holding the logical device at
// each mesh coordinate, in row-major order.
//
// This is the tile-assignment form consumed by sharding.Tile, for a tensor
// whose axes line up one-to-one with the mesh axes:
//
//	m, _ := mesh.New([]int{2, 1}, []string{"data", "model"})
//	s := sharding.Tile(tileShape, m.DeviceAssignment())
func (m *DeviceMesh) DeviceAssignment() *ndarray.Array[int] {
	devices := m.logicalDeviceAssignment
	if devices == nil {
		devices = make([]int, m.numDevices)
		for i := range devices {
			devices[i] = i
		}
	}
	// Lengths were checked on construction, FromFlat cannot fail here.
	a, err := ndarray.FromFlat(m.axesSizes, devices)
	if err != nil {
		panic(err)
	}
	return a
}

// ComputeReplicaGroups returns the replica groups participating in some
// collective (distributed) operation given the axes along which the operation
// is performed.
//
// Each replica group (a []int) includes the device indices (from the
// LogicalDeviceAssignment) for the axes specified. The other axes will be
// split into different replica groups.
//
// Example:
//
//	m := New([]int{2, 2}, []string{"batch", "data"})
//	batchGroups, _ := m.ComputeReplicaGroups([]string{"batch"})           // -> [][]int{{0, 2}, {1, 3}}
//	dataGroups, _ := m.ComputeReplicaGroups([]string{"data"})             // -> [][]int{{0, 1}, {2, 3}}
//	globalGroups, _ := m.ComputeReplicaGroups([]string{"batch", "data"})  // -> [][]int{{0, 1, 2, 3}}
func (m *DeviceMesh) ComputeReplicaGroups(axes []string) ([][]int, error) {
	// Find indices of the specified axes.
	axisIndices := make([]int, 0, len(axes))
	axisSet := sets.Make[int](len(axes))
	for _, axis := range axes {
		idx, found := m.nameToAxis[axis]
		if !found {
			return nil, errors.Errorf("axis %q not found in mesh", axis)
		}
		if axisSet.Has(idx) {
			return nil, errors.Errorf("axis %q is duplicated: each axis can only appear once", axis)
		}
		axisIndices = append(axisIndices, idx)
		axisSet.Insert(idx)
	}

	nonAxisIndices := make([]int, 0, len(m.axesSizes)-len(axisIndices))
	for i := range m.axesSizes {
		if !slices.Contains(axisIndices, i) {
			nonAxisIndices = append(nonAxisIndices, i)
		}
	}

	groupSize := 1
	for _, idx := range axisIndices {
		groupSize *= m.axesSizes[idx]
	}
	numGroups := m.numDevices / groupSize

	groups := make([][]int, numGroups)
	for i := range groups {
		groups[i] = make([]int, groupSize)
	}

	for flatIdx := 0; flatIdx < m.numDevices; flatIdx++ {
		// Convert flat index to per-axis indices.
		indices := make([]int, len(m.axesSizes))
		remaining := flatIdx
		for i := len(m.axesSizes) - 1; i >= 0; i-- {
			indices[i] = remaining % m.axesSizes[i]
			remaining /= m.axesSizes[i]
		}

		// Group index from the non-participating axes.
		groupIdx := 0
		multiplier := 1
		for i := len(nonAxisIndices) - 1; i >= 0; i-- {
			axisIdx := nonAxisIndices[i]
			groupIdx += indices[axisIdx] * multiplier
			multiplier *= m.axesSizes[axisIdx]
		}

		// Position within the group from the participating axes.
		posInGroup := 0
		multiplier = 1
		for i := len(axisIndices) - 1; i >= 0; i-- {
			axisIdx := axisIndices[i]
			posInGroup += indices[axisIdx] * multiplier
			multiplier *= m.axesSizes[axisIdx]
		}

		groups[groupIdx][posInGroup] = flatIdx
	}

	return groups, nil
}
