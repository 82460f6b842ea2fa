package fluidic

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fluidlab/fluidmap/ferrors"
	"github.com/fluidlab/fluidmap/graphcore"
)

// --- JSON document: {name, containers:[...], connections:[...]} ---

type jsonContainerType struct {
	Movement string `json:"movement"`
	Role     string `json:"role"`
}

type jsonCapabilities struct {
	Injector    *ActuatorRef  `json:"injector,omitempty"`
	Extractor   *ActuatorRef  `json:"extractor,omitempty"`
	ODSensor    *ActuatorRef  `json:"od_sensor,omitempty"`
	Mixer       *ActuatorRef  `json:"mixer,omitempty"`
	Temperature *ActuatorRef  `json:"temperature,omitempty"`
	Light       *ActuatorRef  `json:"light,omitempty"`
	Controls    []ActuatorRef `json:"control_valves,omitempty"`
}

type jsonContainer struct {
	ID           int64              `json:"id"`
	Type         jsonContainerType  `json:"type"`
	Capacity     float64            `json:"capacity"`
	Capabilities *jsonCapabilities  `json:"capabilities,omitempty"`
}

type jsonEdgeRef struct {
	Source int64 `json:"source"`
	Target int64 `json:"target"`
}

type jsonConnection struct {
	Source  int64         `json:"source"`
	Target  int64         `json:"target"`
	Allowed []jsonEdgeRef `json:"allowed,omitempty"`
}

type jsonGraph struct {
	Name        string           `json:"name"`
	Containers  []jsonContainer  `json:"containers"`
	Connections []jsonConnection `json:"connections"`
}

// MarshalJSON renders the graph as the stable {name, containers,
// connections} document described in §6. Containers and connections are
// emitted in insertion order.
func (g *Graph) MarshalJSON() ([]byte, error) {
	doc := jsonGraph{Name: g.name}
	for _, id := range g.g.Nodes() {
		c := g.containers[id]
		jc := jsonContainer{
			ID:       int64(id),
			Type:     jsonContainerType{Movement: c.Type.Movement.String(), Role: c.Type.Role.String()},
			Capacity: c.Capacity,
		}
		if c.Capabilities != nil {
			jc.Capabilities = &jsonCapabilities{
				Injector:    c.Capabilities.Injector,
				Extractor:   c.Capabilities.Extractor,
				ODSensor:    c.Capabilities.ODSensor,
				Mixer:       c.Capabilities.Mixer,
				Temperature: c.Capabilities.Temperature,
				Light:       c.Capabilities.Light,
				Controls:    c.Capabilities.Controls,
			}
		}
		doc.Containers = append(doc.Containers, jc)
	}
	for _, e := range g.g.Edges() {
		jcon := jsonConnection{Source: int64(e.Source), Target: int64(e.Target)}
		if cond, ok := g.conditions[e]; ok && !cond.Unrestricted() {
			for pred := range cond.AllowedPredecessors {
				jcon.Allowed = append(jcon.Allowed, jsonEdgeRef{Source: int64(pred.Source), Target: int64(pred.Target)})
			}
		}
		doc.Connections = append(doc.Connections, jcon)
	}
	return json.Marshal(doc)
}

// ParseGraphJSON parses the stable JSON document form (§6) into a Graph. If
// a container carries capabilities it is added as an executable container;
// otherwise as a plain sketch container.
func ParseGraphJSON(data []byte) (*Graph, error) {
	var doc jsonGraph
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("fluidic: parse graph JSON: %w: %v", ferrors.ErrInvalidGraph, err)
	}
	g := NewGraph(doc.Name)
	for _, jc := range doc.Containers {
		movement, err := ParseMovementType(jc.Type.Movement)
		if err != nil {
			return nil, fmt.Errorf("fluidic: container %d: %w: %v", jc.ID, ferrors.ErrInvalidGraph, err)
		}
		role, err := ParseRoleType(jc.Type.Role)
		if err != nil {
			return nil, fmt.Errorf("fluidic: container %d: %w: %v", jc.ID, ferrors.ErrInvalidGraph, err)
		}
		t := ContainerNodeType{Movement: movement, Role: role}
		id := graphcore.NodeID(jc.ID)
		if jc.Capabilities == nil {
			if err := g.AddContainer(id, t, jc.Capacity); err != nil {
				return nil, err
			}
			continue
		}
		caps := CapabilitySlots{
			Injector:    jc.Capabilities.Injector,
			Extractor:   jc.Capabilities.Extractor,
			ODSensor:    jc.Capabilities.ODSensor,
			Mixer:       jc.Capabilities.Mixer,
			Temperature: jc.Capabilities.Temperature,
			Light:       jc.Capabilities.Light,
			Controls:    jc.Capabilities.Controls,
		}
		if err := g.AddExecutableContainer(id, t, jc.Capacity, caps); err != nil {
			return nil, err
		}
	}
	for _, jcon := range doc.Connections {
		u, v := graphcore.NodeID(jcon.Source), graphcore.NodeID(jcon.Target)
		if len(jcon.Allowed) == 0 {
			if err := g.Connect(u, v); err != nil {
				return nil, err
			}
			continue
		}
		allowed := make([]graphcore.Edge, 0, len(jcon.Allowed))
		for _, a := range jcon.Allowed {
			allowed = append(allowed, graphcore.Edge{Source: graphcore.NodeID(a.Source), Target: graphcore.NodeID(a.Target)})
		}
		if err := g.ConnectConditional(u, v, allowed); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// --- Graph dump (debug): "name\nN id type\nE source target\n..." ---

// Dump writes the line-oriented debug text form: first line the graph's
// name, then one "N id type" line per node, then one "E source target"
// line per edge, all in insertion order, so the output is the same for the
// same construction sequence and can be fingerprinted by digest.
func (g *Graph) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, g.name); err != nil {
		return err
	}
	for _, id := range g.g.Nodes() {
		c := g.containers[id]
		if _, err := fmt.Fprintf(bw, "N %d %s\n", id, c.Type); err != nil {
			return err
		}
	}
	for _, e := range g.g.Edges() {
		if _, err := fmt.Fprintf(bw, "E %d %d\n", e.Source, e.Target); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ParseDump parses the debug text form produced by Dump back into a Graph.
// Node type strings are the ContainerNodeType.String() form "(movement, role)".
func ParseDump(r io.Reader) (*Graph, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		return nil, fmt.Errorf("fluidic: parse dump: empty input: %w", ferrors.ErrInvalidGraph)
	}
	g := NewGraph(scanner.Text())
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "N":
			if len(fields) < 3 {
				return nil, fmt.Errorf("fluidic: parse dump: malformed node line %q: %w", line, ferrors.ErrInvalidGraph)
			}
			id, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("fluidic: parse dump: node id %q: %w", fields[1], ferrors.ErrInvalidGraph)
			}
			rest := strings.Join(fields[2:], " ")
			t, err := parseTypeString(rest)
			if err != nil {
				return nil, err
			}
			if err := g.AddContainer(graphcore.NodeID(id), t, 0); err != nil {
				return nil, err
			}
		case "E":
			if len(fields) < 3 {
				return nil, fmt.Errorf("fluidic: parse dump: malformed edge line %q: %w", line, ferrors.ErrInvalidGraph)
			}
			src, err1 := strconv.ParseInt(fields[1], 10, 64)
			tgt, err2 := strconv.ParseInt(fields[2], 10, 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("fluidic: parse dump: edge endpoints %q: %w", line, ferrors.ErrInvalidGraph)
			}
			if err := g.Connect(graphcore.NodeID(src), graphcore.NodeID(tgt)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("fluidic: parse dump: unknown line kind %q: %w", fields[0], ferrors.ErrInvalidGraph)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return g, nil
}

func parseTypeString(s string) (ContainerNodeType, error) {
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return ContainerNodeType{}, fmt.Errorf("fluidic: malformed type string %q: %w", s, ferrors.ErrInvalidGraph)
	}
	movement, err := ParseMovementType(strings.TrimSpace(parts[0]))
	if err != nil {
		return ContainerNodeType{}, fmt.Errorf("fluidic: %w: %v", ferrors.ErrInvalidGraph, err)
	}
	role, err := ParseRoleType(strings.TrimSpace(parts[1]))
	if err != nil {
		return ContainerNodeType{}, fmt.Errorf("fluidic: %w: %v", ferrors.ErrInvalidGraph, err)
	}
	return ContainerNodeType{Movement: movement, Role: role}, nil
}
