package main

const tournamentTemplate = `# Tournament Configuration
# ========================
# This file defines the tournament that kickoff schedules.

tournament:
  name: Summer Cup
  # The first match day. Only opening_day_capacity matches are played on it.
  start_date: "2026-06-13"
  # The group stage must finish within this many days of start_date.
  horizon_days: 40

# Kick-off times, earliest first. The last entry is the premium slot, the
# evening match every team should get a fair share of.
# Times use 24-hour format (e.g., "18:00" = 6:00 PM).
time_slots: ["08:00", "10:00", "16:00", "18:00"]

# Matches per day. Defaults to the number of time slots.
day_capacity: 4

# Matches on the opening day. With a single match it is played in the
# premium slot.
opening_day_capacity: 1

# Whole days a team must rest between two matches. Larger groups play more
# matches, so they usually get a shorter rest requirement.
rest_days:
  default: 3
  by_group_size:
    4: 3
    5: 2

# Groups and their teams. Every team plays every other team of its group
# once. Team names must be unique across all groups.
groups:
  - name: A
    teams: [Lions, Tigers, Bears, Wolves]
  - name: B
    teams: [Eagles, Hawks, Falcons, Owls, Ravens]

# Knockout stages, in order. Each starts gap_days after the previous stage's
# last match.
#
# Templates:
#   cross_groups  Winner of one group against the runner-up of its neighbour.
#   winners       Winners of consecutive matches of the previous stage.
#   explicit      Pairings listed by hand:
#                   pairings:
#                     - home: Winner Group A
#                       away: Runner-up Group B
stages:
  - name: semifinal
    template: cross_groups
    gap_days: 2
  - name: final
    template: winners
    gap_days: 3
`
