package tools

// RegisterAll wires every query and mutation tool this module ships
// into registry, called once at startup.
func RegisterAll(registry *Registry, queryRepo KGRepository, mutationRepo MutationRepository) {
	RegisterMeetingTools(registry, queryRepo)
	RegisterTeamTools(registry, queryRepo)
	RegisterActionItemTools(registry, queryRepo)
	RegisterSearchTool(registry, queryRepo)
	if mutationRepo != nil {
		RegisterMutationTools(registry, mutationRepo)
	}
}
